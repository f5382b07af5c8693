package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"ministry-dashboard/internal/audit"
	"ministry-dashboard/internal/auth"
	"ministry-dashboard/internal/gridcapacity/application"
	"ministry-dashboard/internal/gridcapacity/engine"
	"ministry-dashboard/internal/gridcapacity/interfaces"
	"ministry-dashboard/internal/observability/metrics"
)

const maxEvaluateBody = 1 << 20

const (
	pathDashboard  = "/api/v1/grid/dashboard"
	pathConfig     = "/api/v1/grid/config"
	pathEvaluate   = "/api/v1/grid/evaluate"
	pathExportXLSX = "/api/v1/grid/dashboard/export.xlsx"
	pathExportPDF  = "/api/v1/grid/dashboard/export.pdf"
)

// DashboardService is the application surface used by the handler.
type DashboardService interface {
	Dashboard(ctx context.Context) (*application.Dashboard, error)
	Evaluate(health engine.HealthInput, grids []engine.GridForecastInput) application.EvaluateResult
	EngineConfig() engine.Config
	Grids() []application.GridDefinition
}

// Handler serves grid capacity endpoints.
type Handler struct {
	service     DashboardService
	auditLogger audit.Logger
	logger      logrus.FieldLogger
}

// NewHandler constructs a Handler.
func NewHandler(service DashboardService, auditLogger audit.Logger, logger logrus.FieldLogger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("grid handler: nil service")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{service: service, auditLogger: auditLogger, logger: logger}, nil
}

// Register mounts the handler routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	for _, path := range []string{pathDashboard, pathConfig, pathEvaluate, pathExportXLSX, pathExportPDF} {
		mux.Handle(path, h)
	}
}

// ServeHTTP routes grid requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == pathDashboard && r.Method == http.MethodGet:
		h.handleDashboard(w, r)
	case r.URL.Path == pathConfig && r.Method == http.MethodGet:
		h.handleConfig(w)
	case r.URL.Path == pathEvaluate && r.Method == http.MethodPost:
		h.handleEvaluate(w, r)
	case r.URL.Path == pathExportXLSX && r.Method == http.MethodGet:
		h.handleExport(w, r, "xlsx")
	case r.URL.Path == pathExportPDF && r.Method == http.MethodGet:
		h.handleExport(w, r, "pdf")
	case r.URL.Path == pathDashboard, r.URL.Path == pathConfig, r.URL.Path == pathEvaluate,
		r.URL.Path == pathExportXLSX, r.URL.Path == pathExportPDF:
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, ok := h.loadDashboard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) handleConfig(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, struct {
		Engine engine.Config                `json:"engine"`
		Grids  []application.GridDefinition `json:"grids"`
	}{
		Engine: h.service.EngineConfig(),
		Grids:  h.service.Grids(),
	})
}

type evaluateRequest struct {
	Health engine.HealthInput         `json:"health"`
	Grids  []engine.GridForecastInput `json:"grids"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxEvaluateBody)
	var req evaluateRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	for _, grid := range req.Grids {
		if grid.Grid == "" {
			http.Error(w, "grid id required", http.StatusBadRequest)
			return
		}
	}
	result := h.service.Evaluate(req.Health, req.Grids)
	writeJSON(w, http.StatusOK, result)
	h.logAudit(r, "grid.evaluate", "evaluate", map[string]any{
		"stations": len(req.Health.Stations),
		"grids":    len(req.Grids),
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, format string) {
	started := time.Now()
	dashboard, ok := h.loadDashboard(w, r)
	if !ok {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(started))
		return
	}

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "xlsx":
		data, err = interfaces.BuildDashboardXLSX(dashboard)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		data, err = interfaces.BuildDashboardPDF(dashboard)
		contentType = "application/pdf"
	}
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(started))
		h.logger.WithError(err).WithField("format", format).Error("dashboard export failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(started))

	filename := "grid-dashboard-" + dashboard.GeneratedAt.Format("20060102") + "." + format
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, "grid.dashboard.export", format, map[string]any{"format": format, "bytes": len(data)})
}

func (h *Handler) loadDashboard(w http.ResponseWriter, r *http.Request) (*application.Dashboard, bool) {
	dashboard, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("dashboard unavailable")
		http.Error(w, "station readings unavailable", http.StatusBadGateway)
		return nil, false
	}
	return dashboard, true
}

func (h *Handler) logAudit(r *http.Request, action, resource string, metadata map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(metadata)
	identity, _ := auth.IdentityFromContext(r.Context())
	entry := audit.Entry{
		Actor:      identity.Subject,
		Role:       string(identity.Role),
		Department: identity.Department,
		Action:     action,
		Resource:   resource,
		Metadata:   payload,
		IP:         r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}
	if err := h.auditLogger.Log(r.Context(), entry); err != nil {
		h.logger.WithError(err).WithField("action", action).Warn("audit log failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
