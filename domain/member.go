package domain

import "strings"

// MemberStatus tracks whether a member accepted the invitation.
type MemberStatus string

const (
	MemberActive  MemberStatus = "Active"
	MemberInvited MemberStatus = "Invited"
)

func (s MemberStatus) Valid() bool {
	switch s {
	case MemberActive, MemberInvited:
		return true
	}
	return false
}

const (
	DefaultMemberRole = "Developer"
	PlaceholderAvatar = "https://placehold.co/40x40.png"
)

// TeamMember is a person invited to the workspace.
type TeamMember struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Email  string       `json:"email"`
	Role   string       `json:"role"`
	Status MemberStatus `json:"status"`
	Avatar string       `json:"avatar,omitempty"`
}

// NewMember validates an invitation and fills its defaults.
func NewMember(m TeamMember) (TeamMember, error) {
	m.ID = ""
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	if m.Role == "" {
		m.Role = DefaultMemberRole
	}
	if m.Status == "" {
		m.Status = MemberInvited
	}
	if m.Avatar == "" {
		m.Avatar = PlaceholderAvatar
	}
	var bad []string
	if m.Name == "" {
		bad = append(bad, "name")
	}
	if m.Email == "" || !strings.Contains(m.Email, "@") {
		bad = append(bad, "email")
	}
	if !m.Status.Valid() {
		bad = append(bad, "status")
	}
	if err := invalid("Please fill in the name and email.", bad...); err != nil {
		return TeamMember{}, err
	}
	return m, nil
}

// MemberPatch is a partial team member update.
type MemberPatch struct {
	Name   *string       `json:"name,omitempty"`
	Email  *string       `json:"email,omitempty"`
	Role   *string       `json:"role,omitempty"`
	Status *MemberStatus `json:"status,omitempty"`
	Avatar *string       `json:"avatar,omitempty"`
}

// Validate checks the fields that are set and rejects an empty patch.
func (p MemberPatch) Validate() error {
	var bad []string
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		bad = append(bad, "name")
	}
	if p.Email != nil && !strings.Contains(*p.Email, "@") {
		bad = append(bad, "email")
	}
	if p.Status != nil && !p.Status.Valid() {
		bad = append(bad, "status")
	}
	if err := invalid("Invalid member update.", bad...); err != nil {
		return err
	}
	if len(p.Fields()) == 0 {
		return &ValidationError{Message: "Member update had no fields."}
	}
	return nil
}

// Fields returns the set fields keyed by their stored names.
func (p MemberPatch) Fields() map[string]any {
	f := make(map[string]any)
	if p.Name != nil {
		f["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		f["email"] = strings.TrimSpace(*p.Email)
	}
	if p.Role != nil {
		f["role"] = *p.Role
	}
	if p.Status != nil {
		f["status"] = string(*p.Status)
	}
	if p.Avatar != nil {
		f["avatar"] = *p.Avatar
	}
	return f
}
