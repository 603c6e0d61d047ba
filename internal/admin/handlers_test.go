package admin

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgegate/internal/policy"
	"edgegate/pkg/sentinel"
)

type fakeStore struct {
	mu        sync.Mutex
	sets      map[string]map[string]struct{}
	published []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{sets: map[string]map[string]struct{}{
		policy.KeyIPAllow: {}, policy.KeyIPDeny: {}, policy.KeyCIDRDeny: {}, policy.KeyCountryDeny: {},
	}}
}

func (f *fakeStore) LoadAll(ctx context.Context) ([]string, []string, []string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	toSlice := func(m map[string]struct{}) []string {
		out := make([]string, 0, len(m))
		for k := range m {
			out = append(out, k)
		}
		return out
	}
	return toSlice(f.sets[policy.KeyIPAllow]), toSlice(f.sets[policy.KeyIPDeny]), toSlice(f.sets[policy.KeyCIDRDeny]), toSlice(f.sets[policy.KeyCountryDeny]), nil
}

func (f *fakeStore) AddIP(ctx context.Context, listKey, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets[listKey][ip] = struct{}{}
	return nil
}

func (f *fakeStore) RemoveIP(ctx context.Context, listKey, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sets[listKey][ip]; !ok {
		return fmt.Errorf("remove %q: %w", ip, sentinel.ErrNotFound)
	}
	delete(f.sets[listKey], ip)
	return nil
}

func (f *fakeStore) Publish(ctx context.Context, channel, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, channel+":"+payload)
	return nil
}

func newTestRouter(store *fakeStore) http.Handler {
	r := chi.NewRouter()
	h := NewHandler(store, nil)
	r.Route("/admin", h.Routes)
	return r
}

func TestHandler_AddEntryThenListsIt(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/admin/policy/ip-deny", strings.NewReader(`{"value":"1.2.3.4"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	_, ipDeny, _, _, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Contains(t, ipDeny, "1.2.3.4")
	assert.NotEmpty(t, store.published)
}

func TestHandler_RemoveEntry(t *testing.T) {
	store := newFakeStore()
	store.sets[policy.KeyIPAllow]["9.9.9.9"] = struct{}{}
	r := newTestRouter(store)

	req := httptest.NewRequest(http.MethodDelete, "/admin/policy/ip-allow/9.9.9.9", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	_, _, _, _, _ = store.LoadAll(context.Background())
	assert.NotContains(t, store.sets[policy.KeyIPAllow], "9.9.9.9")
}

func TestHandler_RemoveEntryNotPresentReturns404(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	req := httptest.NewRequest(http.MethodDelete, "/admin/policy/ip-allow/8.8.8.8", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_UnknownListRejected(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/admin/policy/bogus", strings.NewReader(`{"value":"x"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireToken_RejectsWrongToken(t *testing.T) {
	guard := RequireToken("correct-token")
	called := false
	h := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/admin/policy", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireToken_AllowsCorrectToken(t *testing.T) {
	guard := RequireToken("correct-token")
	called := false
	h := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/admin/policy", nil)
	req.Header.Set("X-Admin-Token", "correct-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, called)
}
