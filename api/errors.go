package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"prism-board/domain"
	"prism-board/flow"
	"prism-board/gateway"
	"prism-board/storage"
)

const (
	tasksFlowFailure = "An error occurred while generating tasks. Please try again."
	risksFlowFailure = "An error occurred while analyzing the risks. Please try again."
)

type errorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// respondError maps an operation error onto a status code and a message the
// user can read. Store and model causes are logged, not returned.
func respondError(c echo.Context, logger *log.Logger, a gateway.Action, err error) error {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		setErrorStage(c, "validation")
		return c.JSON(http.StatusBadRequest, errorBody{Error: "Validation Error", Message: vErr.Message, Fields: vErr.Fields})
	}

	entry := logger.WithError(err).WithField("action", a.String())
	if errors.Is(err, flow.ErrFailed) {
		setErrorStage(c, "model")
		entry.Warn("flow failed")
		msg := tasksFlowFailure
		if a == analyzeRisks {
			msg = risksFlowFailure
		}
		return c.JSON(http.StatusBadGateway, errorBody{Error: "Error", Message: msg})
	}

	setErrorStage(c, "store")
	status := http.StatusInternalServerError
	if errors.Is(err, storage.ErrNotFound) {
		status = http.StatusNotFound
	} else if errors.Is(err, storage.ErrConflict) {
		status = http.StatusConflict
	}
	entry.Error("request failed")
	return c.JSON(status, errorBody{Error: "Error", Message: a.FailureMessage()})
}

func badRequest(c echo.Context, title, msg string) error {
	setErrorStage(c, "decode")
	return c.JSON(http.StatusBadRequest, errorBody{Error: title, Message: msg})
}
