package domain

import "strings"

// DefaultProjectStatus is assigned to projects created without a status.
const DefaultProjectStatus = "Planning"

// Project is tracked independently of tasks.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Client      string `json:"client"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	Deadline    string `json:"deadline"`
	Description string `json:"description"`
}

// NewProject validates p and fills creation defaults.
func NewProject(p Project) (Project, error) {
	p.ID = ""
	p.Name = strings.TrimSpace(p.Name)
	p.Client = strings.TrimSpace(p.Client)
	p.Deadline = strings.TrimSpace(p.Deadline)
	if p.Status == "" {
		p.Status = DefaultProjectStatus
	}
	var bad []string
	if p.Name == "" {
		bad = append(bad, "name")
	}
	if p.Client == "" {
		bad = append(bad, "client")
	}
	if p.Deadline == "" {
		bad = append(bad, "deadline")
	}
	if p.Progress < 0 || p.Progress > 100 {
		bad = append(bad, "progress")
	}
	if err := invalid("Please fill in all required fields.", bad...); err != nil {
		return Project{}, err
	}
	return p, nil
}

// ProjectPatch is a partial project update.
type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Client      *string `json:"client,omitempty"`
	Status      *string `json:"status,omitempty"`
	Progress    *int    `json:"progress,omitempty"`
	Deadline    *string `json:"deadline,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Validate checks the fields that are set and rejects an empty patch.
func (p ProjectPatch) Validate() error {
	var bad []string
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		bad = append(bad, "name")
	}
	if p.Client != nil && strings.TrimSpace(*p.Client) == "" {
		bad = append(bad, "client")
	}
	if p.Deadline != nil && strings.TrimSpace(*p.Deadline) == "" {
		bad = append(bad, "deadline")
	}
	if p.Progress != nil && (*p.Progress < 0 || *p.Progress > 100) {
		bad = append(bad, "progress")
	}
	if err := invalid("Please fill in all required fields.", bad...); err != nil {
		return err
	}
	if len(p.Fields()) == 0 {
		return &ValidationError{Message: "Project update had no fields."}
	}
	return nil
}

// Fields returns the set fields keyed by their stored names, with text
// trimmed.
func (p ProjectPatch) Fields() map[string]any {
	f := make(map[string]any)
	if p.Name != nil {
		f["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Client != nil {
		f["client"] = strings.TrimSpace(*p.Client)
	}
	if p.Status != nil {
		f["status"] = *p.Status
	}
	if p.Progress != nil {
		f["progress"] = *p.Progress
	}
	if p.Deadline != nil {
		f["deadline"] = strings.TrimSpace(*p.Deadline)
	}
	if p.Description != nil {
		f["description"] = *p.Description
	}
	return f
}
