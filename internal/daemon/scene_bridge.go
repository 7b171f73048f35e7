// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"

	"github.com/ManuGH/worldflow/internal/bus"
	"github.com/ManuGH/worldflow/internal/events"
	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/reset"
	"github.com/ManuGH/worldflow/internal/reset/model"
	"github.com/rs/zerolog"
)

// sceneFlowReason is the reset reason used for transition-driven resets.
const sceneFlowReason = "SceneTransition"

// BridgeResult is one reset run by the SceneResetBridge.
type BridgeResult struct {
	Ready  events.ScenesReady
	Result reset.Result
	Err    error
}

// SceneResetBridge runs a scene-flow world reset for every ScenesReady
// notification. The reset's completion carries the transition's signature
// and so releases its reset-aware completion gate.
type SceneResetBridge struct {
	resets *reset.Service
	bus    bus.Bus
	logger zerolog.Logger
}

func NewSceneResetBridge(resets *reset.Service, b bus.Bus) *SceneResetBridge {
	return &SceneResetBridge{
		resets: resets,
		bus:    b,
		logger: xglog.WithComponent("daemon.bridge"),
	}
}

// Start subscribes to ScenesReady. Resets run one at a time on the
// subscription goroutine; observe, when non-nil, sees every result. stop
// waits for an in-progress reset to return.
func (br *SceneResetBridge) Start(ctx context.Context, observe func(BridgeResult)) (stop func(), err error) {
	return events.TopicScenesReady.Listen(ctx, br.bus, func(ev events.ScenesReady) {
		res := br.handle(ctx, ev)
		if observe != nil {
			observe(res)
		}
	})
}

func (br *SceneResetBridge) handle(ctx context.Context, ev events.ScenesReady) BridgeResult {
	tc := ev.Context
	req := model.NewRequest(model.Request{
		ContextSignature: tc.Signature,
		Reason:           sceneFlowReason,
		TargetScene:      tc.ToRoute,
		Origin:           model.OriginSceneFlow,
	})
	res, err := br.resets.Execute(ctx, req, model.NewContext(sceneFlowReason, 0))

	logger := xglog.WithContext(xglog.ContextWithSignature(ctx, tc.Signature), br.logger)
	if err != nil {
		logger.Error().Err(err).
			Str(xglog.FieldEvent, "bridge.reset_failed").
			Msg("scene-flow reset failed")
	} else {
		logger.Debug().
			Str(xglog.FieldEvent, "bridge.reset_done").
			Str("decision", res.Decision.Kind().String()).
			Strs("ran", res.Ran).
			Msg("scene-flow reset finished")
	}
	return BridgeResult{Ready: ev, Result: res, Err: err}
}
