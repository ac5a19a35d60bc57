package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"prism-board/gateway"
)

// generateTasks asks the model for drafts and adds all of them to the board.
func generateTasks(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req generateTasksRequest
		if err := decodeBody(c, &req); err != nil {
			return badRequest(c, "Invalid Body", "The request body must contain a goal.")
		}
		goal := strings.TrimSpace(req.Goal)
		if goal == "" {
			return badRequest(c, "Input Required", "Please describe the goal for the AI.")
		}
		ctx := c.Request().Context()
		drafts, err := d.Flows.GenerateTasks(ctx, goal)
		if err != nil {
			return respondError(c, d.Log, gateway.GenerateTasks, err)
		}
		tasks, err := d.Gateway.PromoteDrafts(ctx, drafts)
		if err != nil {
			return respondError(c, d.Log, gateway.GenerateTasks, err)
		}
		return c.JSON(http.StatusCreated, generateTasksResponse{
			Tasks:   tasks,
			Message: fmt.Sprintf("%d tasks have been generated and added to your board.", len(tasks)),
		})
	}
}

// analyzeProjectRisks returns the model's risk report. Nothing is stored.
func analyzeProjectRisks(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req analyzeRisksRequest
		if err := decodeBody(c, &req); err != nil {
			return badRequest(c, "Invalid Body", "The request body must contain projectCommunications.")
		}
		text := strings.TrimSpace(req.ProjectCommunications)
		if text == "" {
			return badRequest(c, "Input Required", "Please paste project communications to analyze.")
		}
		report, err := d.Flows.AnalyzeProjectRisks(c.Request().Context(), text)
		if err != nil {
			return respondError(c, d.Log, analyzeRisks, err)
		}
		return c.JSON(http.StatusOK, report)
	}
}
