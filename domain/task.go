package domain

import "strings"

// Priority is the closed set of task priorities.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities lists every priority in display order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is Low, Medium or High.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status is the workflow state of a task. It doubles as the column id.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// Valid reports whether s names one of the board columns.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// UnassignedName is shown when a task has nobody assigned.
const UnassignedName = "Unassigned"

// Assignee is the person a task is assigned to.
type Assignee struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Task is a single card on the board.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	DueDate     string   `json:"dueDate"`
	Assignee    Assignee `json:"assignee"`
	Comments    int      `json:"comments"`
	Attachments int      `json:"attachments"`
	Status      Status   `json:"status"`
}

// TaskInput carries the user-supplied fields of a new task.
type TaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	DueDate     string   `json:"dueDate"`
	Assignee    string   `json:"assignee"`
	Status      Status   `json:"status"`
}

// NewTask validates in and fills the defaults of a freshly created task.
// Counters always start at zero.
func NewTask(in TaskInput) (Task, error) {
	t := Task{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Assignee:    Assignee{Name: strings.TrimSpace(in.Assignee)},
		Status:      in.Status,
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Assignee.Name == "" {
		t.Assignee.Name = UnassignedName
	}

	var bad []string
	msg := "Invalid task."
	if t.Title == "" {
		bad = append(bad, "title")
		msg = "Please provide a title for the task."
	}
	if !t.Priority.Valid() {
		bad = append(bad, "priority")
	}
	if !t.Status.Valid() {
		bad = append(bad, "status")
	}
	if err := invalid(msg, bad...); err != nil {
		return Task{}, err
	}
	return t, nil
}

// TaskPatch is a partial task update. Nil fields are left unchanged.
// A non-nil Assignee replaces the whole assignee record.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	Assignee    *Assignee `json:"assignee,omitempty"`
	Comments    *int      `json:"comments,omitempty"`
	Attachments *int      `json:"attachments,omitempty"`
	Status      *Status   `json:"status,omitempty"`
}

// Validate rejects patches that would break task invariants.
func (p TaskPatch) Validate() error {
	var bad []string
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		bad = append(bad, "title")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		bad = append(bad, "priority")
	}
	if p.Status != nil && !p.Status.Valid() {
		bad = append(bad, "status")
	}
	if p.Assignee != nil && strings.TrimSpace(p.Assignee.Name) == "" {
		bad = append(bad, "assignee")
	}
	if p.Comments != nil && *p.Comments < 0 {
		bad = append(bad, "comments")
	}
	if p.Attachments != nil && *p.Attachments < 0 {
		bad = append(bad, "attachments")
	}
	if err := invalid("Invalid task update.", bad...); err != nil {
		return err
	}
	if p.Empty() {
		return &ValidationError{Message: "Task update had no fields."}
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.DueDate == nil &&
		p.Assignee == nil && p.Comments == nil && p.Attachments == nil && p.Status == nil
}

// Fields returns the patch as top-level document fields.
func (p TaskPatch) Fields() map[string]any {
	f := make(map[string]any)
	if p.Title != nil {
		f["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		f["description"] = *p.Description
	}
	if p.Priority != nil {
		f["priority"] = string(*p.Priority)
	}
	if p.DueDate != nil {
		f["dueDate"] = *p.DueDate
	}
	if p.Assignee != nil {
		a := map[string]any{"name": p.Assignee.Name}
		if p.Assignee.Avatar != "" {
			a["avatar"] = p.Assignee.Avatar
		}
		f["assignee"] = a
	}
	if p.Comments != nil {
		f["comments"] = *p.Comments
	}
	if p.Attachments != nil {
		f["attachments"] = *p.Attachments
	}
	if p.Status != nil {
		f["status"] = string(*p.Status)
	}
	return f
}
