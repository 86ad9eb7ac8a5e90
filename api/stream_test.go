package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"taskboard-api/domain"
)

func TestStreamTasksEmitsFrames(t *testing.T) {
	t.Setenv("STREAM_INTERVAL", "10ms")

	e := echo.New()
	store := newMockStore()
	store.tasks["user-x"] = []domain.Task{{ID: "t1", Title: "Task", Order: 1}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := streamTasks(store, ownerAuth("user-x"))(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if ct := rec.Header().Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "data: ") || !strings.Contains(body, `"t1"`) {
		t.Fatalf("unexpected stream body: %q", body)
	}
	if strings.Count(body, "data: ") < 2 {
		t.Fatalf("expected repeated frames, got %q", body)
	}
}

func TestStreamTasksUnauthenticated(t *testing.T) {
	e := echo.New()
	store := newMockStore()

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/stream", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := streamTasks(store, mockAuth{err: errNotAuthenticated})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 got %d", rec.Code)
	}
}

func TestStreamTasksTokenQueryParam(t *testing.T) {
	t.Setenv("STREAM_INTERVAL", "10ms")

	e := echo.New()
	store := newMockStore()
	auth := testAuth(t)
	token, _, err := auth.IssueSession("user-x", "x@example.com")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	store.tasks["user-x"] = []domain.Task{{ID: "t1", Title: "Task", Order: 1}}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/stream?token="+token, nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := streamTasks(store, auth)(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"t1"`) {
		t.Fatalf("expected task frame, got %q", rec.Body.String())
	}
}
