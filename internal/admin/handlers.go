// Package admin implements the gateway's CRUD surface over the four
// policy-list keys: add or remove an IP, CIDR, or country from an
// allow/deny list and fan the change out to every replica via the
// invalidation channel.
package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"edgegate/internal/policy"
	"edgegate/pkg/apierrors"
	"edgegate/pkg/httputil"
	"edgegate/pkg/sentinel"
)

// Handler serves the admin policy-list API.
type Handler struct {
	store policy.Store
	log   *slog.Logger
}

// NewHandler builds a Handler.
func NewHandler(store policy.Store, log *slog.Logger) *Handler {
	return &Handler{store: store, log: log}
}

// Routes mounts the admin policy-list endpoints onto r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/policy", h.getSnapshot)
	r.Post("/policy/{list}", h.addEntry)
	r.Delete("/policy/{list}/{value}", h.removeEntry)
}

var listKeys = map[string]string{
	"ip-allow":     policy.KeyIPAllow,
	"ip-deny":      policy.KeyIPDeny,
	"cidr-deny":    policy.KeyCIDRDeny,
	"country-deny": policy.KeyCountryDeny,
}

type snapshotResponse struct {
	IPAllow     []string `json:"ip_allow"`
	IPDeny      []string `json:"ip_deny"`
	CIDRDeny    []string `json:"cidr_deny"`
	CountryDeny []string `json:"country_deny"`
}

func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	ipAllow, ipDeny, cidrDeny, countryDeny, err := h.store.LoadAll(r.Context())
	if err != nil {
		httputil.WriteError(w, apierrors.New(apierrors.TransientStore, "failed to load policy lists"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snapshotResponse{
		IPAllow: ipAllow, IPDeny: ipDeny, CIDRDeny: cidrDeny, CountryDeny: countryDeny,
	})
}

type addEntryRequest struct {
	Value string `json:"value"`
}

func (h *Handler) addEntry(w http.ResponseWriter, r *http.Request) {
	key, ok := listKeys[chi.URLParam(r, "list")]
	if !ok {
		httputil.WriteError(w, apierrors.New(apierrors.InvalidClient, "unknown policy list"))
		return
	}

	var body addEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Value == "" {
		httputil.WriteError(w, apierrors.New(apierrors.InvalidClient, "missing value"))
		return
	}

	if err := h.store.AddIP(r.Context(), key, body.Value); err != nil {
		httputil.WriteError(w, apierrors.New(apierrors.TransientStore, "failed to update policy list"))
		return
	}
	h.publishReload(r)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) removeEntry(w http.ResponseWriter, r *http.Request) {
	key, ok := listKeys[chi.URLParam(r, "list")]
	if !ok {
		httputil.WriteError(w, apierrors.New(apierrors.InvalidClient, "unknown policy list"))
		return
	}
	value := chi.URLParam(r, "value")

	if err := h.store.RemoveIP(r.Context(), key, value); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, apierrors.New(apierrors.NotFound, "value not present in list"))
			return
		}
		httputil.WriteError(w, apierrors.New(apierrors.TransientStore, "failed to update policy list"))
		return
	}
	h.publishReload(r)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) publishReload(r *http.Request) {
	if err := h.store.Publish(r.Context(), policy.InvalidationChannel, policy.ReloadPayload); err != nil && h.log != nil {
		h.log.WarnContext(r.Context(), "failed to publish policy invalidation", "error", err)
	}
}
