// Package aiprovider contains the vendor adapters behind the ai.ModelProvider
// port. Each adapter holds a platform-level API key and an in-memory map of
// per-tenant overrides; the tenant is resolved from the request context.
package aiprovider

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/backend/internal/infrastructure/logger"
)

// maxResponseSize is the maximum allowed response size from a provider (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Default retry policy for provider requests. Rate limits and server
// errors are retried with exponential backoff.
const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = time.Second
)

// tenantFromContext resolves the tenant carried in the request context.
// Returns false when the context carries no parseable tenant ID.
func tenantFromContext(ctx context.Context) (uuid.UUID, bool) {
	raw := logger.GetTenantID(ctx)
	if raw == "" {
		return uuid.Nil, false
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return tenantID, true
}
