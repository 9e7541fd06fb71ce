package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vervebank/directdebit-service/internal/app"
	"github.com/vervebank/directdebit-service/internal/config"
	"github.com/vervebank/directdebit-service/internal/domain"
)

type emptyMandateStore struct{}

func (emptyMandateStore) ListActive(ctx context.Context) ([]domain.Mandate, error) {
	return nil, nil
}

func (emptyMandateStore) Update(ctx context.Context, id string, mandate domain.Mandate) error {
	return nil
}

func newTestRouter() (http.Handler, *app.Jobs) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jobs := app.NewJobs(emptyMandateStore{}, nil, nil, logger, config.Config{})
	return NewRouter(NewStatusHandler(jobs)), jobs
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
}

func TestStatus_NoTickYet(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status before the first tick = %d, want 204", rec.Code)
	}
}

func TestStatus_AfterTick(t *testing.T) {
	router, jobs := newTestRouter()
	jobs.RunDirectDebits() // no active mandates, but a summary is recorded

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status after a tick = %d, want 200", rec.Code)
	}
	var summary app.RunSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("status body is not valid JSON: %v", err)
	}
	if summary.Due != 0 {
		t.Fatalf("due = %d, want 0", summary.Due)
	}
	if summary.StartedAt.IsZero() {
		t.Fatal("summary is missing the tick start time")
	}
}
