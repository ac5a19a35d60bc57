package gateway

import (
	"context"
	"time"

	"github.com/bytedance/sonic"

	"prism-board/domain"
	"prism-board/storage"
)

// decode converts snapshot documents into entities. Documents that fail to
// decode are logged and skipped.
func decode[T any](g *Gateway, c domain.Collection, docs []storage.Document, setID func(*T, string)) []T {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := sonic.ConfigStd.Unmarshal(d.Data, &v); err != nil {
			g.log.WithError(err).WithField("collection", c).WithField("id", d.ID).Warn("skipping undecodable document")
			continue
		}
		setID(&v, d.ID)
		out = append(out, v)
	}
	return out
}

// DecodeTasks turns task documents into tasks. Documents that fail to
// decode are logged and skipped.
func (g *Gateway) DecodeTasks(docs []storage.Document) []domain.Task {
	return decode(g, domain.Tasks, docs, func(t *domain.Task, id string) { t.ID = id })
}

// DecodeProjects is DecodeTasks for projects.
func (g *Gateway) DecodeProjects(docs []storage.Document) []domain.Project {
	return decode(g, domain.Projects, docs, func(p *domain.Project, id string) { p.ID = id })
}

// DecodeTeam is DecodeTasks for team members.
func (g *Gateway) DecodeTeam(docs []storage.Document) []domain.TeamMember {
	return decode(g, domain.Team, docs, func(m *domain.TeamMember, id string) { m.ID = id })
}

func (g *Gateway) Tasks(ctx context.Context) ([]domain.Task, error) {
	docs, err := g.store.Snapshot(ctx, domain.Tasks)
	if err != nil {
		return nil, err
	}
	return g.DecodeTasks(docs), nil
}

// Board returns the current tasks projected into columns.
func (g *Gateway) Board(ctx context.Context) ([]domain.Column, error) {
	tasks, err := g.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	return domain.ProjectBoard(tasks), nil
}

func (g *Gateway) Projects(ctx context.Context) ([]domain.Project, error) {
	docs, err := g.store.Snapshot(ctx, domain.Projects)
	if err != nil {
		return nil, err
	}
	return g.DecodeProjects(docs), nil
}

func (g *Gateway) Team(ctx context.Context) ([]domain.TeamMember, error) {
	docs, err := g.store.Snapshot(ctx, domain.Team)
	if err != nil {
		return nil, err
	}
	return g.DecodeTeam(docs), nil
}

// Calendar lists task due dates and project deadlines between from and to.
func (g *Gateway) Calendar(ctx context.Context, from, to time.Time) ([]domain.CalendarDay, error) {
	tasks, err := g.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := g.Projects(ctx)
	if err != nil {
		return nil, err
	}
	return domain.CalendarEntries(tasks, projects, from, to), nil
}
