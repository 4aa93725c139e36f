package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bwise1/bookgroups/config"
	deps "github.com/bwise1/bookgroups/internal/debs"
	"github.com/bwise1/bookgroups/util"
	"github.com/bwise1/bookgroups/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultShutdownPeriod = 30 * time.Second
)

type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	if resp == nil {
		return
	}
	respByte, err := json.Marshal(resp)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

type API struct {
	Server *http.Server
	Config *config.Config
	Deps   *deps.Dependencies
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Handler:      api.setUpServerHandler(),
	}
	return api.Server.ListenAndServe()
}

func (api *API) setUpServerHandler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(RequestTracing)
	mux.Use(RequestLogger)
	mux.Use(api.Sessions)
	mux.Use(api.Authenticate)

	mux.Method(http.MethodGet, "/health", Handler(api.HealthHandler))

	mux.Get("/", api.HomePage)
	mux.Mount("/recruit", api.RecruitRoutes())
	mux.Mount("/search", api.SearchRoutes())
	mux.Method(http.MethodPost, "/session/scroll", Handler(api.SaveScrollPositionHandler))
	mux.Get("/ws", api.Deps.WebSocket.HandleConnections)

	mux.Mount("/api/groups", api.GroupRoutes())

	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.renderError(w, r, http.StatusNotFound, "page not found")
	})

	return mux
}

func (api *API) HealthHandler(_ http.ResponseWriter, _ *http.Request) *ServerResponse {
	return &ServerResponse{
		Message:    "ok",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       map[string]int{"cached_queries": api.Deps.Cache.Len(), "websocket_clients": api.Deps.WebSocket.Len()},
	}
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (api *API) Shutdown(ctx context.Context) error {
	if api.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultShutdownPeriod)
	defer cancel()
	return api.Server.Shutdown(ctx)
}
