package model

// TaskStatus represents the status of a task as reported by the backend.
type TaskStatus string

const (
	// TaskStatusAnswered indicates the task was a question and got a direct answer.
	TaskStatusAnswered TaskStatus = "answered"
	// TaskStatusCompleted indicates the task finished its execution.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusWaitingApproval indicates the task has risky steps and waits for a human decision.
	TaskStatusWaitingApproval TaskStatus = "waiting_approval"
	// TaskStatusCancelled indicates the task was rejected or could not be executed.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Artifact is a file produced by a task execution.
type Artifact struct {
	Path        string
	Type        string
	Description string
}

// Task represents a task submitted to the backend.
// At most one task is active in the client at a time.
type Task struct {
	ID        string
	Status    TaskStatus
	Summary   string
	Artifacts []Artifact
}

// TaskReply is the backend reply to a task creation request.
type TaskReply struct {
	Status    TaskStatus
	TaskID    string
	Steps     []ApprovalStep
	QA        bool
	Answer    string
	Summary   string
	Artifacts []Artifact
}

// ApprovalReply is the backend reply to an approval decision.
type ApprovalReply struct {
	TaskID    string
	Status    TaskStatus
	Summary   string
	Artifacts []Artifact
}
