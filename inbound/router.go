package inbound

import (
	"context"
	"net/http"
	"strings"

	"github.com/goliatone/go-communities/core"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/gorilla/mux"
)

const (
	PathHealth      = "/healthz"
	PathMetrics     = "/metrics"
	PathCommunities = "/api/communities"
)

type RouterConfig struct {
	WebhookPath string
	Webhook     http.Handler
	Reader      core.CommunityReader
	Metrics     http.Handler
	Logger      core.Logger
}

// NewRouter mounts the webhook endpoint, the health probe, the optional
// metrics handler and the read-only community API.
func NewRouter(cfg RouterConfig) *mux.Router {
	logger := glog.Ensure(cfg.Logger)
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, MessageNotFound)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, MessageMethodNotAllowed)
	})

	if cfg.Webhook != nil {
		path := strings.TrimSpace(cfg.WebhookPath)
		if path == "" {
			path = core.DefaultWebhookPath
		}
		router.Handle(path, cfg.Webhook).Methods(http.MethodPost)
	}

	router.HandleFunc(PathHealth, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	if cfg.Metrics != nil {
		router.Handle(PathMetrics, cfg.Metrics).Methods(http.MethodGet)
	}

	if cfg.Reader != nil {
		api := &communityAPI{reader: cfg.Reader, logger: logger}
		router.HandleFunc(PathCommunities+"/{id}", api.getCommunity).Methods(http.MethodGet)
		router.HandleFunc(PathCommunities+"/{id}/members", api.listMembers).Methods(http.MethodGet)
	}
	return router
}

type communityAPI struct {
	reader core.CommunityReader
	logger core.Logger
}

type membersResponse struct {
	CommunityID string        `json:"community_id"`
	Members     []core.Member `json:"members"`
}

func (a *communityAPI) getCommunity(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	community, err := a.reader.GetCommunity(r.Context(), id)
	if err != nil {
		a.renderError(r.Context(), w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, community)
}

func (a *communityAPI) listMembers(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	members, err := a.reader.ListMembers(r.Context(), id)
	if err != nil {
		a.renderError(r.Context(), w, err, id)
		return
	}
	if members == nil {
		members = []core.Member{}
	}
	writeJSON(w, http.StatusOK, membersResponse{CommunityID: id, Members: members})
}

func (a *communityAPI) renderError(ctx context.Context, w http.ResponseWriter, err error, id string) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		core.LogWithFields(ctx, a.logger, "error", "community lookup failed", map[string]any{
			"community_id": id,
			"error":        err.Error(),
		})
	}
	writeMessage(w, status, message)
}
