package backend

import (
	"context"

	"github.com/slok/jarvis/internal/model"
)

//go:generate mockery --case underscore --output backendmock --outpkg backendmock --name Client --structname MockClient

// Client is the request/response channel to the task execution backend.
type Client interface {
	// CreateTask submits a new task described in natural language.
	CreateTask(ctx context.Context, description string) (*model.TaskReply, error)
	// ApproveTask sends the human decision for a task waiting for approval.
	ApproveTask(ctx context.Context, decision model.ApprovalDecision) (*model.ApprovalReply, error)
	// ListSkills returns the skills available on the backend.
	ListSkills(ctx context.Context) ([]model.Skill, error)
	// ListTools returns the tools available on the backend.
	ListTools(ctx context.Context) ([]model.Tool, error)
}
