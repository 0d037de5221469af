package model

import "encoding/json"

// Stage is a named point in a task's execution sequence, pushed by the backend as
// progress advances.
type Stage string

const (
	StageReceived        Stage = "received"
	StageTaskCreated     Stage = "task_created"
	StageBuildingContext Stage = "building_context"
	StageContextBuilt    Stage = "context_built"
	StageRouting         Stage = "routing"
	StageRouted          Stage = "routed"
	StagePlanning        Stage = "planning"
	StagePlanned         Stage = "planned"
	StageExecuting       Stage = "executing"
	StageCompleted       Stage = "completed"

	// Stages the backend pushes that are not part of the canonical order.
	StageWaitingApproval Stage = "waiting_approval"
	StageCancelled       Stage = "cancelled"
	StageError           Stage = "error"
)

var canonicalStages = []Stage{
	StageReceived,
	StageTaskCreated,
	StageBuildingContext,
	StageContextBuilt,
	StageRouting,
	StageRouted,
	StagePlanning,
	StagePlanned,
	StageExecuting,
	StageCompleted,
}

var stageLabels = map[Stage]string{
	StageReceived:        "Task received",
	StageTaskCreated:     "Task created",
	StageBuildingContext: "Building context",
	StageContextBuilt:    "Context ready",
	StageRouting:         "Routing task",
	StageRouted:          "Task routed",
	StagePlanning:        "Planning",
	StagePlanned:         "Plan ready",
	StageExecuting:       "Executing",
	StageCompleted:       "Completed",
}

// CanonicalStages returns the fixed, totally ordered stage sequence.
func CanonicalStages() []Stage {
	stages := make([]Stage, len(canonicalStages))
	copy(stages, canonicalStages)
	return stages
}

// StageIndex returns the position of the stage in the canonical order, -1 if
// the stage is unknown.
func StageIndex(s Stage) int {
	for i, cs := range canonicalStages {
		if cs == s {
			return i
		}
	}
	return -1
}

// Label returns the human readable name of the stage.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// IsTerminal returns true if the stage is the last one of the canonical order.
func (s Stage) IsTerminal() bool { return s == StageCompleted }

// StageData is the payload of a stage event. Only Artifacts is inspected, and
// only at the terminal stage. Raw keeps the payload as received.
type StageData struct {
	TaskID    string
	Artifacts []Artifact
	Raw       json.RawMessage
}

// StageEvent is a progress notification for a task.
type StageEvent struct {
	Stage Stage
	Data  StageData
}

// PushMessageType is the type of a push channel frame.
type PushMessageType string

const (
	PushMessageTypeTaskUpdate PushMessageType = "task_update"
	PushMessageTypePing       PushMessageType = "ping"
	PushMessageTypePong       PushMessageType = "pong"
)

// PushMessage is a frame received on the push channel, already decoded from its
// wire envelope.
type PushMessage struct {
	Type  PushMessageType
	Event StageEvent
}
