package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"tweetcompare/internal/core"
	"tweetcompare/internal/log"
	"tweetcompare/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether templates and posts are loaded
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.svc == nil || s.svc.PostCount() == 0 {
		checks["posts"] = "failed: no posts loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["posts"] = map[string]any{
			"status": "ok",
			"count":  s.svc.PostCount(),
			"years":  s.svc.Years(),
		}
	}

	if cs, ok := s.svc.(cacheStatser); ok {
		stats := cs.CacheStats()
		checks["cache"] = map[string]any{
			"entries": stats.Size,
			"hits":    stats.Hits,
			"misses":  stats.Misses,
			"status":  "ok",
		}
	}

	writeJSON(w, r, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	if s.templates == nil || s.svc == nil {
		logger.ErrorContext(ctx, "Templates not loaded",
			log.FieldPath, r.URL.Path,
			"error_type", log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	defaults := s.svc.DefaultRequest()
	req := ParseComparisonParams(r.URL.Query(), defaults)
	if err := req.Validate(); err != nil {
		logger.WarnContext(ctx, "Invalid month parameter, using default",
			log.FieldMonth, req.Month, "corrected_to", defaults.Month)
		req.Month = defaults.Month
	}

	c, err := s.compare(ctx, req)
	if err != nil {
		InternalServerError("Comparison failed").Write(w)
		return
	}

	data := indexView{
		Title:      s.title,
		Years:      s.svc.Years(),
		Months:     monthOptions(req.Month),
		Request:    req,
		Comparison: newComparisonView(c),
	}
	s.render(w, r, "index.html", data, nil)
}

// handleComparisonPartial renders the two panels for the HTMX swap.
func (s *Server) handleComparisonPartial(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil || s.svc == nil {
		InternalServerError("Templates not loaded").Write(w)
		return
	}

	req := ParseComparisonParams(r.URL.Query(), s.svc.DefaultRequest())
	c, err := s.compare(r.Context(), req)
	switch {
	case errors.Is(err, core.ErrInvalidMonth):
		UnprocessableEntityError("Month must be between 1 and 12").Write(w)
		return
	case err != nil:
		InternalServerError("Comparison failed").Write(w)
		return
	}

	s.render(w, r, "comparison.html", newComparisonView(c), NewHTMXResponse().TriggerComparisonUpdated(req))
}

func (s *Server) handleComparisonAPI(w http.ResponseWriter, r *http.Request) {
	if s.svc == nil {
		writeJSONError(w, r, http.StatusServiceUnavailable, "no posts loaded")
		return
	}

	req := ParseComparisonParams(r.URL.Query(), s.svc.DefaultRequest())
	c, err := s.compare(r.Context(), req)
	switch {
	case errors.Is(err, core.ErrInvalidMonth):
		writeJSONError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		writeJSONError(w, r, http.StatusInternalServerError, "comparison failed")
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

type yearsResponse struct {
	Years    []int                  `json:"years"`
	Keywords []string               `json:"keywords"`
	Default  core.ComparisonRequest `json:"default"`
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	if s.svc == nil {
		writeJSONError(w, r, http.StatusServiceUnavailable, "no posts loaded")
		return
	}
	years := s.svc.Years()
	if years == nil {
		years = []int{}
	}
	writeJSON(w, r, http.StatusOK, yearsResponse{
		Years:    years,
		Keywords: s.svc.Keywords(),
		Default:  s.svc.DefaultRequest(),
	})
}

// compare calls the service and logs unexpected failures. Invalid months
// are logged at warn level since they are client errors.
func (s *Server) compare(ctx context.Context, req core.ComparisonRequest) (services.Comparison, error) {
	c, err := s.svc.Compare(ctx, req)
	if err == nil {
		return c, nil
	}
	logger := log.FromContext(ctx)
	if errors.Is(err, core.ErrInvalidMonth) {
		logger.WarnContext(ctx, "Invalid comparison request",
			log.FieldYearA, req.YearA, log.FieldYearB, req.YearB, log.FieldMonth, req.Month,
			"error_type", log.ErrorTypeValidation)
	} else {
		logger.ErrorContext(ctx, "Comparison failed",
			log.FieldYearA, req.YearA, log.FieldYearB, req.YearB, log.FieldMonth, req.Month,
			"error_type", log.ErrorTypeInternal,
			log.FieldError, err.Error())
	}
	return services.Comparison{}, err
}

// render executes a template into a buffer so that a failing template
// never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any, b *HTMXResponseBuilder) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			"error_type", log.ErrorTypeInternal,
			log.FieldError, err.Error())
		InternalServerError("Rendering failed").Write(w)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.BodyHTML(buf.Bytes()).Write(w)
}
