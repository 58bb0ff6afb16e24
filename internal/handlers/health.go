package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fundbridge-gpt/internal/contextutil"
)

// CollectionChecker reports whether the vector collection is available.
type CollectionChecker interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
}

// Pinger checks provider liveness with the server credential.
type Pinger interface {
	Ping(ctx context.Context, apiKey string) error
}

// DBPinger is satisfied by *sql.DB.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name string
	// Critical failures make the service unhealthy; the rest only degrade it.
	Critical bool
	Check    func(ctx context.Context) error
}

// VectorCollectionCheck fails when the collection is missing or the store
// cannot be reached. Retrieval is impossible without it.
func VectorCollectionCheck(store CollectionChecker, collection string) HealthCheck {
	return HealthCheck{
		Name:     "vector_store",
		Critical: true,
		Check: func(ctx context.Context) error {
			exists, err := store.CollectionExists(ctx, collection)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("collection %q does not exist", collection)
			}
			return nil
		},
	}
}

// SessionStoreCheck pings the session database.
func SessionStoreCheck(db DBPinger) HealthCheck {
	return HealthCheck{Name: "session_store", Critical: true, Check: db.PingContext}
}

// ProviderCheck pings the model provider with the server key. Callers may
// bring their own key, so a failure only degrades the service.
func ProviderCheck(p Pinger) HealthCheck {
	return HealthCheck{
		Name: "llm",
		Check: func(ctx context.Context) error {
			return p.Ping(ctx, "")
		},
	}
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	checks  []HealthCheck
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler running the given checks.
func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 5 * time.Second}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy", "degraded", or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP runs every check concurrently under one timeout.
//
// swagger:route GET /api/health healthCheck
//
// responses:
//
//	'200':
//	  description: System is healthy or degraded
//	'503':
//	  description: A critical dependency is unavailable
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	errs := make([]error, len(h.checks))
	var wg sync.WaitGroup
	for i, c := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.Check(checkCtx)
		}()
	}
	wg.Wait()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]string, len(h.checks)),
	}
	httpStatus := http.StatusOK
	for i, c := range h.checks {
		if errs[i] == nil {
			resp.Checks[c.Name] = "ok"
			continue
		}
		logger.WarnContext(ctx, "health check failed", "check", c.Name, "error", errs[i])
		resp.Checks[c.Name] = "error"
		if errors.Is(errs[i], context.DeadlineExceeded) {
			resp.Checks[c.Name] = "timeout"
		}
		resp.Issues = append(resp.Issues, c.Name+"_unavailable")
		switch {
		case c.Critical:
			resp.Status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		case resp.Status == "healthy":
			resp.Status = "degraded"
		}
	}

	writeJSON(w, ctx, httpStatus, resp)
}
