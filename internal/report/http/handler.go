// Package http wires the consolidation engine to its HTTP surfaces: the
// grid data endpoint, the spreadsheet exports and the inline budget
// edit.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/finconsol/finconsol/internal/metrics"
	"github.com/finconsol/finconsol/internal/platform/httpx"
	"github.com/finconsol/finconsol/internal/report"
	"github.com/finconsol/finconsol/internal/report/xlsx"
)

// Handler serves the consolidated report endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *report.Service
	metrics   *metrics.Service
	cache     *Cache
	validate  *validator.Validate
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs a report handler. The metrics service and cache
// are optional.
func NewHandler(logger *slog.Logger, service *report.Service, metricSvc *metrics.Service, cache *Cache) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("report handler: service required")
	}
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	return &Handler{
		logger:    logger,
		service:   service,
		metrics:   metricSvc,
		cache:     cache,
		validate:  validator.New(),
		rateLimit: limiter,
	}, nil
}

// MountRoutes registers the report endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/{statement}/data", h.HandleGridData)
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Get("/reports/{statement}/export.xlsx", h.HandleExportXLSX)
	})
	if h.metrics != nil {
		r.Put("/metrics/budget", h.HandleSaveBudget)
	}
}

// HandleGridData serves the `{columns, rows}` payload for the grid.
// Identical concurrent requests coalesce; results are cached until the
// next budget edit or the TTL.
func (h *Handler) HandleGridData(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filters", err.Error())
		return
	}
	key := buildCacheKey(filters)
	if payload, ok := h.cache.Get(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
		return
	}
	result, err, _ := singleflightBuild(r.Context(), key, func(ctx context.Context) (interface{}, error) {
		rep, err := h.service.Build(ctx, filters)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(report.BuildGrid(rep))
		if err != nil {
			return nil, err
		}
		h.cache.Set(ctx, key, payload)
		return payload, nil
	})
	if err != nil {
		h.respondBuildError(w, err)
		return
	}
	payload, ok := result.([]byte)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

// HandleExportXLSX streams the workbook for the requested layout.
func (h *Handler) HandleExportXLSX(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filters", err.Error())
		return
	}
	layout := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("layout")))
	if layout == "" {
		layout = "formatted"
	}
	rep, err := h.service.Build(r.Context(), filters)
	if err != nil {
		h.respondBuildError(w, err)
		return
	}

	var (
		file     *excelize.File
		filename string
	)
	switch layout {
	case "formatted":
		file, err = xlsx.WriteFormatted(rep)
		filename = xlsx.FormattedFilename(filters)
	case "stakeholder":
		file, err = xlsx.WriteStakeholder(rep)
		filename = xlsx.StakeholderFilename(filters)
	default:
		httpx.Problem(w, http.StatusBadRequest, "Invalid Layout", fmt.Sprintf("unknown layout %q", layout))
		return
	}
	if err != nil {
		h.logger.Error("render xlsx export", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Export Failed", "")
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := file.Write(w); err != nil {
		h.logger.Error("write xlsx export", slog.Any("error", err))
	}
}

type saveBudgetRequest struct {
	MetricID int64  `json:"metric_id" validate:"required,gt=0"`
	Period   string `json:"period" validate:"required"`
	DataType string `json:"data_type" validate:"required"`
	Value    string `json:"value" validate:"required"`
}

// HandleSaveBudget upserts one consolidated budget cell and busts the
// payload cache so the next build re-reads.
func (h *Handler) HandleSaveBudget(w http.ResponseWriter, r *http.Request) {
	var req saveBudgetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	period, err := time.Parse("2006-01", req.Period)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "period must be formatted as YYYY-MM")
		return
	}
	dataType, err := report.ParseDataType(req.DataType)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "value must be numeric")
		return
	}
	err = h.metrics.SaveBudgetValue(r.Context(), metrics.BudgetValue{
		MetricID: req.MetricID,
		Period:   period,
		Value:    value,
		DataType: dataType,
	})
	if err != nil {
		h.logger.Error("save budget value", slog.Any("error", err))
		httpx.Problem(w, http.StatusUnprocessableEntity, "Save Failed", err.Error())
		return
	}
	h.cache.Bust(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type reportQuery struct {
	FromMonth int `validate:"required,min=1,max=12"`
	FromYear  int `validate:"required,min=1900,max=2200"`
	ToMonth   int `validate:"required,min=1,max=12"`
	ToYear    int `validate:"required,min=1900,max=2200"`
}

func (h *Handler) parseFilters(r *http.Request) (report.Filters, error) {
	statement, err := report.ParseStatement(chi.URLParam(r, "statement"))
	if err != nil {
		return report.Filters{}, err
	}
	dataType, err := report.ParseDataType(r.URL.Query().Get("data_type"))
	if err != nil {
		return report.Filters{}, err
	}
	q := reportQuery{}
	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"from_month", &q.FromMonth},
		{"from_year", &q.FromYear},
		{"to_month", &q.ToMonth},
		{"to_year", &q.ToYear},
	} {
		raw := strings.TrimSpace(r.URL.Query().Get(field.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return report.Filters{}, fmt.Errorf("%s must be numeric", field.name)
		}
		*field.dst = n
	}
	if err := h.validate.Struct(q); err != nil {
		return report.Filters{}, fmt.Errorf("invalid report range: %w", err)
	}
	return report.Filters{
		Statement: statement,
		DataType:  dataType,
		FromMonth: q.FromMonth,
		FromYear:  q.FromYear,
		ToMonth:   q.ToMonth,
		ToYear:    q.ToYear,
	}, nil
}

func (h *Handler) respondBuildError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, report.ErrUnmappedAccount), errors.Is(err, report.ErrDuplicateAccount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Data Integrity Fault", err.Error())
	case errors.Is(err, report.ErrStreamConfig):
		httpx.Problem(w, http.StatusInternalServerError, "Stream Configuration Fault", err.Error())
	default:
		h.logger.Error("build report", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
