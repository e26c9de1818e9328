// Package fwupdate drives the multi-phase, bidirectional firmware-update
// protocol against one target device per active Session (spec §4.4). The
// state machine, phase functions, and bandwidth-reservation renewal are
// grounded on the teacher's Orchestrator shape in
// internal/mirage/orchestration.go: a mutex-guarded store of live work
// plus pure-function steps that advance it.
package fwupdate

// State is one node of the per-session update state machine (spec §4.4
// "State machine (per session)").
type State int

const (
	StateIdle State = iota
	StateLearnComponents
	StateReadyXfer
	StateDownload
	StateVerify
	StateApply
	StateActivate
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLearnComponents:
		return "LearnComponents"
	case StateReadyXfer:
		return "ReadyXfer"
	case StateDownload:
		return "Download"
	case StateVerify:
		return "Verify"
	case StateApply:
		return "Apply"
	case StateActivate:
		return "Activate"
	default:
		return "Unknown"
	}
}

// legalTransitions enumerates every allowed (from, to) edge (spec §4.4,
// §8 property 7: "The only legal transitions are as listed in §4.4").
var legalTransitions = map[State]map[State]bool{
	StateIdle:            {StateLearnComponents: true},
	StateLearnComponents: {StateReadyXfer: true, StateIdle: true},
	StateReadyXfer:       {StateDownload: true, StateActivate: true, StateIdle: true},
	StateDownload:        {StateVerify: true, StateReadyXfer: true, StateIdle: true},
	StateVerify:          {StateApply: true, StateReadyXfer: true, StateIdle: true},
	StateApply:           {StateReadyXfer: true, StateIdle: true},
	StateActivate:        {},
}

// CanTransition reports whether from->to is one of the defined edges.
func CanTransition(from, to State) bool {
	edges, ok := legalTransitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

// CancelUpdateComponent returns ReadyXfer from any of {Download, Verify,
// Apply}; it is a no-op (state unchanged) elsewhere (spec §4.4).
func CancelUpdateComponentTarget(from State) (State, bool) {
	switch from {
	case StateDownload, StateVerify, StateApply:
		return StateReadyXfer, true
	default:
		return from, false
	}
}

// CancelUpdateTarget returns Idle from any state except {Idle, Activate};
// it is harmless (no-op) from those two (spec §4.4 "Error escalation").
func CancelUpdateTarget(from State) (State, bool) {
	if from == StateIdle || from == StateActivate {
		return from, false
	}
	return StateIdle, true
}
