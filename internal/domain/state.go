package domain

import (
	"fmt"
	"strings"
)

type Stage string

const (
	StageCompleted Stage = "completed"
	StageRequested Stage = "requested"
	StageApproved  Stage = "approved"
	StageCanceled  Stage = "canceled"
	StageRejected  Stage = "rejected"
)

// State is the parsed form of the backend's compound "<direction>/<stage>"
// descriptor. The raw string is split at the system boundary and never
// carried further.
type State struct {
	Direction Direction
	Stage     Stage
}

func ParseState(raw string) (State, error) {
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) != 2 {
		return State{}, fmt.Errorf("malformed state descriptor %q", raw)
	}

	var direction Direction
	switch parts[0] {
	case string(DirectionIncoming):
		direction = DirectionIncoming
	case string(DirectionOutgoing):
		direction = DirectionOutgoing
	default:
		return State{}, fmt.Errorf("unknown state direction %q", parts[0])
	}

	var stage Stage
	switch parts[1] {
	case string(StageCompleted):
		stage = StageCompleted
	case string(StageRequested):
		stage = StageRequested
	case string(StageApproved):
		stage = StageApproved
	case string(StageCanceled):
		stage = StageCanceled
	case string(StageRejected):
		stage = StageRejected
	default:
		return State{}, fmt.Errorf("unknown state stage %q", parts[1])
	}

	return State{Direction: direction, Stage: stage}, nil
}

func (s State) String() string {
	return string(s.Direction) + "/" + string(s.Stage)
}
