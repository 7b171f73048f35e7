// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transition

import "github.com/ManuGH/worldflow/internal/fsm"

type State string

const (
	StateRequested              State = "Requested"
	StateFadeIn                 State = "FadeIn"
	StateLoading                State = "Loading"
	StateScenesReady            State = "ScenesReady"
	StateAwaitingCompletionGate State = "AwaitingCompletionGate"
	StateFadeOut                State = "FadeOut"
	StateCompleted              State = "Completed"
	StateFailed                 State = "Failed"
)

// Terminal reports whether no further transitions leave s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

type Event string

const (
	EventBegin        Event = "Begin"
	EventFadedIn      Event = "FadedIn"
	EventScenesLoaded Event = "ScenesLoaded"
	EventAwaitGate    Event = "AwaitGate"
	EventGateResolved Event = "GateResolved"
	EventFadedOut     Event = "FadedOut"
	EventFailed       Event = "Failed"
)

func transitions() []fsm.Transition[State, Event] {
	edges := []fsm.Transition[State, Event]{
		{From: StateRequested, Event: EventBegin, To: StateFadeIn},
		{From: StateFadeIn, Event: EventFadedIn, To: StateLoading},
		{From: StateLoading, Event: EventScenesLoaded, To: StateScenesReady},
		{From: StateScenesReady, Event: EventAwaitGate, To: StateAwaitingCompletionGate},
		{From: StateAwaitingCompletionGate, Event: EventGateResolved, To: StateFadeOut},
		{From: StateFadeOut, Event: EventFadedOut, To: StateCompleted},
	}
	for _, from := range []State{StateRequested, StateFadeIn, StateLoading, StateScenesReady, StateAwaitingCompletionGate, StateFadeOut} {
		edges = append(edges, fsm.Transition[State, Event]{From: from, Event: EventFailed, To: StateFailed})
	}
	return edges
}

func newMachine() *fsm.Machine[State, Event] {
	m, err := fsm.New(StateRequested, transitions())
	if err != nil {
		// The edge table is static; a duplicate is a programming error.
		panic(err)
	}
	return m
}
