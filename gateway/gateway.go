// Package gateway validates and applies board mutations against the
// remote store and reads typed collections back.
package gateway

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"prism-board/domain"
	"prism-board/storage"
)

// Gateway is the only writer of board state.
type Gateway struct {
	store storage.Store
	log   *log.Logger
}

// New returns a gateway writing to store.
func New(store storage.Store, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Gateway{store: store, log: logger}
}

func (g *Gateway) create(ctx context.Context, a Action, c domain.Collection, v any) (string, error) {
	fields, err := toFields(v)
	if err != nil {
		return "", &ActionError{Action: a, Err: err}
	}
	id, err := g.store.Create(ctx, c, fields)
	if err != nil {
		g.log.WithError(err).WithField("action", a.String()).Error("store write failed")
		return "", &ActionError{Action: a, Err: err}
	}
	return id, nil
}

func (g *Gateway) insert(ctx context.Context, a Action, c domain.Collection, id string, v any) error {
	fields, err := toFields(v)
	if err != nil {
		return &ActionError{Action: a, Err: err}
	}
	if err := g.store.Insert(ctx, c, id, fields); err != nil {
		g.log.WithError(err).WithFields(log.Fields{"action": a.String(), "id": id}).Error("store write failed")
		return &ActionError{Action: a, Err: err}
	}
	return nil
}

func (g *Gateway) update(ctx context.Context, a Action, c domain.Collection, id string, fields map[string]any) error {
	if err := g.store.Update(ctx, c, id, fields); err != nil {
		g.log.WithError(err).WithFields(log.Fields{"action": a.String(), "id": id}).Error("store write failed")
		return &ActionError{Action: a, Err: err}
	}
	return nil
}

func (g *Gateway) remove(ctx context.Context, a Action, c domain.Collection, id string) error {
	if err := g.store.Delete(ctx, c, id); err != nil {
		g.log.WithError(err).WithFields(log.Fields{"action": a.String(), "id": id}).Error("store write failed")
		return &ActionError{Action: a, Err: err}
	}
	return nil
}

func requireID(id string) error {
	if id == "" {
		return &domain.ValidationError{Message: "Missing identifier.", Fields: []string{"id"}}
	}
	return nil
}

// CreateTask adds a task with creation defaults applied.
func (g *Gateway) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	task, err := domain.NewTask(in)
	if err != nil {
		return domain.Task{}, err
	}
	id, err := g.create(ctx, CreateTask, domain.Tasks, task)
	if err != nil {
		return domain.Task{}, err
	}
	task.ID = id
	return task, nil
}

// UpdateTask merges the fields present in p into the task.
func (g *Gateway) UpdateTask(ctx context.Context, id string, p domain.TaskPatch) error {
	if err := requireID(id); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return g.update(ctx, UpdateTask, domain.Tasks, id, p.Fields())
}

func (g *Gateway) DeleteTask(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	return g.remove(ctx, DeleteTask, domain.Tasks, id)
}

// PromoteDrafts inserts every draft as a new task. Ids are allocated in draft
// order before the writes fan out, so the board lists the tasks in the order
// they were generated. The writes are independent; the call fails if any
// write fails and does not report which ones landed.
func (g *Gateway) PromoteDrafts(ctx context.Context, drafts []domain.TaskDraft) ([]domain.Task, error) {
	tasks := make([]domain.Task, len(drafts))
	var bad []string
	for i, d := range drafts {
		tasks[i] = d.Promote()
		if tasks[i].Title == "" || !tasks[i].Priority.Valid() {
			bad = append(bad, fmt.Sprintf("tasks[%d]", i))
		}
	}
	if len(bad) > 0 {
		return nil, &domain.ValidationError{Message: "Generated tasks are incomplete.", Fields: bad}
	}

	ids := make([]string, len(tasks))
	for i := range ids {
		ids[i] = storage.NewID()
	}
	var eg errgroup.Group
	for i := range tasks {
		eg.Go(func() error {
			if err := g.insert(ctx, GenerateTasks, domain.Tasks, ids[i], tasks[i]); err != nil {
				return err
			}
			tasks[i].ID = ids[i]
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateProject adds a project with creation defaults applied.
func (g *Gateway) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	p, err := domain.NewProject(p)
	if err != nil {
		return domain.Project{}, err
	}
	id, err := g.create(ctx, CreateProject, domain.Projects, p)
	if err != nil {
		return domain.Project{}, err
	}
	p.ID = id
	return p, nil
}

func (g *Gateway) UpdateProject(ctx context.Context, id string, p domain.ProjectPatch) error {
	if err := requireID(id); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return g.update(ctx, UpdateProject, domain.Projects, id, p.Fields())
}

func (g *Gateway) DeleteProject(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	return g.remove(ctx, DeleteProject, domain.Projects, id)
}

// InviteMember adds a team member in the invited state.
func (g *Gateway) InviteMember(ctx context.Context, m domain.TeamMember) (domain.TeamMember, error) {
	m, err := domain.NewMember(m)
	if err != nil {
		return domain.TeamMember{}, err
	}
	id, err := g.create(ctx, InviteMember, domain.Team, m)
	if err != nil {
		return domain.TeamMember{}, err
	}
	m.ID = id
	return m, nil
}

func (g *Gateway) UpdateMember(ctx context.Context, id string, p domain.MemberPatch) error {
	if err := requireID(id); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return g.update(ctx, UpdateMember, domain.Team, id, p.Fields())
}

func (g *Gateway) RemoveMember(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	return g.remove(ctx, RemoveMember, domain.Team, id)
}

// toFields turns an entity into top-level document fields without its id.
func toFields(v any) (map[string]any, error) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := sonic.ConfigStd.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	delete(fields, "id")
	return fields, nil
}
