package mw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgegate/internal/ratelimit/fixedwindow"
)

func TestFixedWindowStage_AllowsThenRejects(t *testing.T) {
	stage := &FixedWindowStage{
		Store:   fixedwindow.NewMemStore(),
		KeyFunc: func(r *http.Request) string { return "admin-1" },
		Limit:   2,
		Window:  time.Minute,
	}
	handler := stage.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestFixedWindowStage_EmptyKeyRejects400(t *testing.T) {
	stage := &FixedWindowStage{
		Store:   fixedwindow.NewMemStore(),
		KeyFunc: func(r *http.Request) string { return "" },
		Limit:   1,
		Window:  time.Minute,
	}
	handler := stage.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFixedWindowStage_StoreErrorFailsClosed(t *testing.T) {
	stage := &FixedWindowStage{
		Store:   failingFixedWindowStore{},
		KeyFunc: func(r *http.Request) string { return "admin-1" },
		Limit:   1,
		Window:  time.Minute,
	}
	handler := stage.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFixedWindowStage_CustomHeaderPrefix(t *testing.T) {
	stage := &FixedWindowStage{
		Store:        fixedwindow.NewMemStore(),
		KeyFunc:      func(r *http.Request) string { return "admin-1" },
		Limit:        2,
		Window:       time.Minute,
		HeaderPrefix: "X-Admin-RateLimit",
	}
	handler := stage.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-Admin-RateLimit-Limit"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

type failingFixedWindowStore struct{}

func (failingFixedWindowStore) Incr(ctx context.Context, key string, window time.Duration) (fixedwindow.Step, error) {
	return fixedwindow.Step{}, errors.New("store unavailable")
}
