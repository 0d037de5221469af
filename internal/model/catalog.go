package model

// Skill is a capability available on the backend.
type Skill struct {
	ID          string
	Name        string
	Description string
}

// Tool is a tool available on the backend.
type Tool struct {
	ID          string
	Name        string
	Description string
}
