package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Debrajkhanra88/Gaia/pkg/types"
)

// Service defines what the HTTP layer needs from the orchestrator: a live,
// supervisor-backed view of the fleet.
type Service interface {
	Nodes() []types.NodeStatus
}

// zlog is an optional structured logger. If unset, the server stays quiet.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// NewRouter builds the read-only status API: /healthz, /nodes, /metrics.
func NewRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))
	r.Use(MetricsMiddleware)

	r.Get("/healthz", handleHealthz)
	r.Get("/nodes", handleNodes(svc))
	r.Handle("/metrics", promhttp.Handler())
	MountSwagger(r)
	return r
}

// handleHealthz godoc
// @Summary  Liveness probe
// @Produce  json
// @Success  200 {object} map[string]string
// @Router   /healthz [get]
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleNodes godoc
// @Summary  List nodes with live supervisor-backed state
// @Produce  json
// @Success  200 {object} types.NodesResponse
// @Router   /nodes [get]
func handleNodes(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nodes := svc.Nodes()
		if nodes == nil {
			nodes = []types.NodeStatus{}
		}
		if zlog != nil {
			zlog.Debug().Int("nodes", len(nodes)).Msg("status query")
		}
		writeJSON(w, http.StatusOK, types.NodesResponse{Nodes: nodes})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
