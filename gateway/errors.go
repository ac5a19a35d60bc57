package gateway

import "fmt"

// Action names a mutation for failure reporting.
type Action struct {
	Verb string
	Noun string
}

var (
	CreateTask    = Action{"create", "task"}
	UpdateTask    = Action{"update", "task"}
	DeleteTask    = Action{"delete", "task"}
	GenerateTasks = Action{"add generated", "tasks"}
	CreateProject = Action{"create", "project"}
	UpdateProject = Action{"update", "project"}
	DeleteProject = Action{"delete", "project"}
	InviteMember  = Action{"invite", "member"}
	UpdateMember  = Action{"update", "member"}
	RemoveMember  = Action{"remove", "member"}
)

func (a Action) String() string { return a.Verb + " " + a.Noun }

// FailureMessage is the text shown to the user when the action fails.
func (a Action) FailureMessage() string {
	return fmt.Sprintf("Failed to %s %s.", a.Verb, a.Noun)
}

// ActionError wraps a store failure with the mutation that was attempted.
type ActionError struct {
	Action Action
	Err    error
}

func (e *ActionError) Error() string { return e.Action.String() + ": " + e.Err.Error() }

func (e *ActionError) Unwrap() error { return e.Err }
