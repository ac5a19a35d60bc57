package api

import (
	"bytes"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"prism-board/domain"
	"prism-board/gateway"
	"prism-board/storage"
)

// errorEvent is sent in place of a snapshot when the collection could not be
// read. The stream stays open and the next change is tried again.
const errorEvent = "error"

// streamCollection pushes every snapshot of a collection as a server-sent
// event until the client goes away. Task snapshots are sent as board columns.
func streamCollection(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		col := domain.Collection(c.Param("collection"))
		if !col.Valid() {
			setErrorStage(c, "collection")
			return c.JSON(http.StatusNotFound, errorBody{Error: "Not Found", Message: "Unknown collection."})
		}
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}

		ctx := c.Request().Context()
		sub, err := d.Subs.Subscribe(ctx, col)
		if err != nil {
			return respondError(c, d.Log, loadAction(col), err)
		}
		defer sub.Close()

		h := c.Response().Header()
		h.Set(echo.HeaderContentType, "text/event-stream")
		h.Set(echo.HeaderCacheControl, "no-cache")
		h.Set(echo.HeaderConnection, "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		c.Response().WriteHeader(http.StatusOK)
		flusher.Flush()

		entry := d.Log.WithField("collection", col)
		for {
			select {
			case <-ctx.Done():
				return nil
			case snap, ok := <-sub.C():
				if !ok {
					return nil
				}
				event := string(col)
				var body any
				if snap.Err != nil {
					event = errorEvent
					body = errorBody{Error: "Error", Message: loadAction(col).FailureMessage()}
				} else {
					body = snapshotPayload(d, col, snap.Docs)
				}
				payload, err := sonic.ConfigStd.Marshal(body)
				if err != nil {
					entry.WithError(err).Error("encode snapshot")
					continue
				}
				if _, err := c.Response().Write(sseFrame(event, payload)); err != nil {
					entry.WithError(err).Debug("stream client gone")
					return nil
				}
				flusher.Flush()
			}
		}
	}
}

func loadAction(col domain.Collection) gateway.Action {
	switch col {
	case domain.Projects:
		return loadProjects
	case domain.Team:
		return loadTeam
	}
	return loadBoard
}

func snapshotPayload(d Deps, col domain.Collection, docs []storage.Document) any {
	switch col {
	case domain.Tasks:
		return boardResponse{Columns: domain.ProjectBoard(d.Gateway.DecodeTasks(docs))}
	case domain.Projects:
		return projectsResponse{Projects: d.Gateway.DecodeProjects(docs)}
	case domain.Team:
		return teamResponse{Team: d.Gateway.DecodeTeam(docs)}
	}
	return nil
}

func sseFrame(event string, data []byte) []byte {
	var b bytes.Buffer
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteString("\ndata: ")
	b.Write(data)
	b.WriteString("\n\n")
	return b.Bytes()
}
