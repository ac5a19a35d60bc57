package api

import (
	"context"

	"prism-board/domain"
)

// Authenticator resolves the caller from the Authorization header.
type Authenticator interface {
	IdentityFromAuthHeader(h string) (Identity, error)
	IdentityFromToken(token string) (Identity, error)
}

// Deduper remembers idempotency keys so a retried create is applied once.
type Deduper interface {
	Add(ctx context.Context, userID, key string) (bool, error)
	Remove(ctx context.Context, userID, key string) error
}

// Flows runs the AI features.
type Flows interface {
	GenerateTasks(ctx context.Context, goal string) ([]domain.TaskDraft, error)
	AnalyzeProjectRisks(ctx context.Context, communications string) (domain.RiskReport, error)
}
