package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"prism-board/domain"
	"prism-board/gateway"
	"prism-board/subscription"
)

const maxBodySize = 1 << 20

// Deps are the collaborators the HTTP API is built on. Deduper is optional.
type Deps struct {
	Gateway *gateway.Gateway
	Flows   Flows
	Subs    *subscription.Manager
	Auth    Authenticator
	Deduper Deduper
	Log     *log.Logger
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	if d.Log == nil {
		d.Log = log.StandardLogger()
	}
	e.JSONSerializer = sonicSerializer{}
	e.GET("/healthz", healthz())

	stream := e.Group("/api/stream", RequestMetrics(d.Log), RequireIdentity(d.Auth, true))
	stream.GET("/:collection", streamCollection(d))

	g := e.Group("/api", RequestMetrics(d.Log), GzipRequestMiddleware(), RequireIdentity(d.Auth, false))
	g.GET("/me", getMe())
	g.GET("/board", getBoard(d))
	g.GET("/projects", getProjects(d))
	g.GET("/team", getTeam(d))
	g.GET("/calendar", getCalendar(d))

	g.POST("/tasks", idempotent(d, gateway.CreateTask, createTask(d)))
	g.PATCH("/tasks/:id", updateTask(d))
	g.DELETE("/tasks/:id", deleteTask(d))

	g.POST("/projects", idempotent(d, gateway.CreateProject, createProject(d)))
	g.PATCH("/projects/:id", updateProject(d))
	g.DELETE("/projects/:id", deleteProject(d))

	g.POST("/team", idempotent(d, gateway.InviteMember, inviteMember(d)))
	g.PATCH("/team/:id", updateMember(d))
	g.DELETE("/team/:id", removeMember(d))

	g.POST("/ai/tasks", idempotent(d, gateway.GenerateTasks, generateTasks(d)))
	g.POST("/ai/risks", analyzeProjectRisks(d))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getMe() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, identity(c))
	}
}

// decodeBody reads a size-limited JSON body, rejecting unknown fields.
func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// idempotent applies a create at most once per Idempotency-Key and user.
// The key is released again when the create does not succeed.
func idempotent(d Deps, a gateway.Action, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := strings.TrimSpace(c.Request().Header.Get("Idempotency-Key"))
		if d.Deduper == nil || key == "" {
			return next(c)
		}
		ctx := c.Request().Context()
		userID := identity(c).Subject
		added, err := d.Deduper.Add(ctx, userID, key)
		if err != nil {
			d.Log.WithError(err).Warn("deduper unavailable; processing without idempotency")
			return next(c)
		}
		if !added {
			setErrorStage(c, "duplicate")
			return c.JSON(http.StatusConflict, errorBody{Error: "Duplicate Request", Message: "This request was already processed."})
		}
		err = next(c)
		if err != nil || c.Response().Status >= http.StatusBadRequest {
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if rerr := d.Deduper.Remove(rctx, userID, key); rerr != nil {
				d.Log.WithError(rerr).WithField("action", a.String()).Warn("release idempotency key")
			}
		}
		return err
	}
}

func getBoard(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		board, err := d.Gateway.Board(c.Request().Context())
		if err != nil {
			return respondError(c, d.Log, loadBoard, err)
		}
		return c.JSON(http.StatusOK, boardResponse{Columns: board})
	}
}

func getProjects(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		projects, err := d.Gateway.Projects(c.Request().Context())
		if err != nil {
			return respondError(c, d.Log, loadProjects, err)
		}
		return c.JSON(http.StatusOK, projectsResponse{Projects: projects})
	}
}

func getTeam(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		team, err := d.Gateway.Team(c.Request().Context())
		if err != nil {
			return respondError(c, d.Log, loadTeam, err)
		}
		return c.JSON(http.StatusOK, teamResponse{Team: team})
	}
}

func getCalendar(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var from, to time.Time
		for _, p := range []struct {
			name string
			dst  *time.Time
		}{{"from", &from}, {"to", &to}} {
			raw := c.QueryParam(p.name)
			if raw == "" {
				continue
			}
			t, err := time.Parse(domain.DateLayout, raw)
			if err != nil {
				return badRequest(c, "Validation Error", "Dates must use YYYY-MM-DD.")
			}
			*p.dst = t
		}
		days, err := d.Gateway.Calendar(c.Request().Context(), from, to)
		if err != nil {
			return respondError(c, d.Log, loadCalendar, err)
		}
		return c.JSON(http.StatusOK, calendarResponse{Days: days})
	}
}

func createTask(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in domain.TaskInput
		if err := decodeBody(c, &in); err != nil {
			return badRequest(c, "Invalid Body", "The request body is not a valid task.")
		}
		task, err := d.Gateway.CreateTask(c.Request().Context(), in)
		if err != nil {
			return respondError(c, d.Log, gateway.CreateTask, err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func updateTask(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var p domain.TaskPatch
		if err := decodeBody(c, &p); err != nil {
			return badRequest(c, "Invalid Body", "The request body is not a valid task update.")
		}
		if err := d.Gateway.UpdateTask(c.Request().Context(), c.Param("id"), p); err != nil {
			return respondError(c, d.Log, gateway.UpdateTask, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func deleteTask(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := d.Gateway.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
			return respondError(c, d.Log, gateway.DeleteTask, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func createProject(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var p domain.Project
		if err := decodeBody(c, &p); err != nil {
			return badRequest(c, "Invalid Body", "The request body is not a valid project.")
		}
		created, err := d.Gateway.CreateProject(c.Request().Context(), p)
		if err != nil {
			return respondError(c, d.Log, gateway.CreateProject, err)
		}
		return c.JSON(http.StatusCreated, created)
	}
}

func updateProject(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var p domain.ProjectPatch
		if err := decodeBody(c, &p); err != nil {
			return badRequest(c, "Invalid Body", "The request body is not a valid project update.")
		}
		if err := d.Gateway.UpdateProject(c.Request().Context(), c.Param("id"), p); err != nil {
			return respondError(c, d.Log, gateway.UpdateProject, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func deleteProject(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := d.Gateway.DeleteProject(c.Request().Context(), c.Param("id")); err != nil {
			return respondError(c, d.Log, gateway.DeleteProject, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func inviteMember(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var m domain.TeamMember
		if err := decodeBody(c, &m); err != nil {
			return badRequest(c, "Invalid Body", "The request body is not a valid team member.")
		}
		created, err := d.Gateway.InviteMember(c.Request().Context(), m)
		if err != nil {
			return respondError(c, d.Log, gateway.InviteMember, err)
		}
		return c.JSON(http.StatusCreated, created)
	}
}

func updateMember(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var p domain.MemberPatch
		if err := decodeBody(c, &p); err != nil {
			return badRequest(c, "Invalid Body", "The request body is not a valid member update.")
		}
		if err := d.Gateway.UpdateMember(c.Request().Context(), c.Param("id"), p); err != nil {
			return respondError(c, d.Log, gateway.UpdateMember, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func removeMember(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := d.Gateway.RemoveMember(c.Request().Context(), c.Param("id")); err != nil {
			return respondError(c, d.Log, gateway.RemoveMember, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
