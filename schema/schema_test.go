package schema

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func draftsShape() Shape {
	return Shape{
		Type: Object,
		Fields: []Field{{
			Name: "tasks",
			Shape: Shape{
				Type: Array,
				Items: &Shape{
					Type: Object,
					Fields: []Field{
						{Name: "title", Shape: Shape{Type: String}},
						{Name: "description", Shape: Shape{Type: String}},
						{Name: "priority", Shape: Shape{Type: String, Enum: []string{"Low", "Medium", "High"}}},
					},
				},
			},
		}},
	}
}

func TestValidateAcceptsConformingValue(t *testing.T) {
	v := map[string]any{
		"tasks": []any{
			map[string]any{"title": "a", "description": "b", "priority": "High", "extra": 1.0},
		},
	}
	if err := draftsShape().Validate(v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsEnumViolation(t *testing.T) {
	v := map[string]any{
		"tasks": []any{
			map[string]any{"title": "a", "description": "b", "priority": "urgent"},
		},
	}
	err := draftsShape().Validate(v)
	if err == nil {
		t.Fatal("expected rejection for priority urgent")
	}
	issues := Issues(err)
	if len(issues) != 1 || issues[0].Path != "tasks[0].priority" {
		t.Fatalf("unexpected issues %v", issues)
	}
}

func TestValidateReportsEveryIssue(t *testing.T) {
	v := map[string]any{
		"tasks": []any{
			map[string]any{"title": 3.0, "priority": "Low"},
			"not an object",
		},
	}
	issues := Issues(draftsShape().Validate(v))
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %v", issues)
	}
	var paths []string
	for _, is := range issues {
		paths = append(paths, is.Path)
	}
	got := strings.Join(paths, ",")
	if got != "tasks[0].title,tasks[0].description,tasks[1]" {
		t.Fatalf("unexpected issue paths %s", got)
	}
}

func TestValidatePrimitives(t *testing.T) {
	cases := []struct {
		shape Shape
		value any
		ok    bool
	}{
		{Shape{Type: Integer}, 3.0, true},
		{Shape{Type: Integer}, 3.5, false},
		{Shape{Type: Number}, 3.5, true},
		{Shape{Type: Boolean}, true, true},
		{Shape{Type: Boolean}, "true", false},
		{Shape{Type: String}, nil, false},
		{Shape{Type: Object, Fields: []Field{{Name: "x", Optional: true, Shape: Shape{Type: String}}}}, map[string]any{}, true},
	}
	for i, c := range cases {
		err := c.shape.Validate(c.value)
		if (err == nil) != c.ok {
			t.Fatalf("case %d: expected ok=%v, got %v", i, c.ok, err)
		}
	}
}

func TestCheckRejectsBadDeclarations(t *testing.T) {
	bad := []Shape{
		{Type: Array},
		{Type: "date"},
		{Type: Integer, Enum: []string{"1"}},
		{Type: Object, Fields: []Field{{Name: "a", Shape: Shape{Type: String}}, {Name: "a", Shape: Shape{Type: String}}}},
	}
	for i, s := range bad {
		if err := s.Check(); err == nil {
			t.Fatalf("case %d: expected declaration error", i)
		}
	}
	if err := draftsShape().Check(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestShapeFromYAML(t *testing.T) {
	doc := `
type: object
fields:
  - name: overallProjectRisk
    type: string
    description: The overall risk level for the project.
    enum: [HIGH, MEDIUM, LOW]
`
	var s Shape
	if err := yaml.Unmarshal([]byte(doc), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}
	if s.Fields[0].Description == "" || len(s.Fields[0].Enum) != 3 {
		t.Fatalf("unexpected field %+v", s.Fields[0])
	}
	if err := s.Validate(map[string]any{"overallProjectRisk": "SEVERE"}); err == nil {
		t.Fatal("expected enum rejection")
	}
}
