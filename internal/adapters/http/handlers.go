package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jobrunner/geodraw/internal/application"
	"github.com/jobrunner/geodraw/internal/domain"
)

const geoJSONContentType = "application/geo+json"

// positionsRequest is the body of the measure endpoints. Points are
// [lon, lat] or [lon, lat, height] arrays.
type positionsRequest struct {
	Points     [][]float64 `json:"points"`
	BaseHeight float64     `json:"base_height"`
}

// updateRequest is the body of a feature PATCH.
type updateRequest struct {
	Name       *string                `json:"name"`
	Style      *domain.StylePatch     `json:"style"`
	Visible    *bool                  `json:"visible"`
	Properties map[string]interface{} `json:"properties"`
}

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":        boolToStatus(details.Healthy),
		"ready":         details.Ready,
		"feature_count": details.FeatureCount,
		"components":    details.Components,
	})
}

// handleLiveness returns liveness status.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness returns readiness status.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// handleListFeatures lists the features, or exports them as a GeoJSON
// FeatureCollection with ?format=geojson.
func (s *Server) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("format") == "geojson" {
		selectedOnly, _ := strconv.ParseBool(q.Get("selected"))
		fc, err := s.features.Export(selectedOnly)
		if err != nil {
			s.handleServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", geoJSONContentType)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(fc)
		return
	}

	features := s.features.List(r.Context())
	response := make([]map[string]interface{}, len(features))
	for i := range features {
		response[i] = formatFeature(&features[i])
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"features": response,
		"count":    len(features),
	})
}

// handleImport imports a GeoJSON document.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.features.Import(r.Context(), data)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	failures := make([]map[string]interface{}, len(result.Errors))
	for i, ie := range result.Errors {
		failures[i] = map[string]interface{}{
			"index":   ie.Index,
			"reason":  ie.Reason,
			"message": ie.Error(),
		}
	}

	status := http.StatusCreated
	if result.Success == 0 && result.Failed > 0 {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, map[string]interface{}{
		"success": result.Success,
		"failed":  result.Failed,
		"ids":     result.IDs,
		"errors":  failures,
	})
}

// handleClear removes every feature.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.features.Clear(r.Context()); err != nil {
		s.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetFeature returns a single feature.
func (s *Server) handleGetFeature(w http.ResponseWriter, r *http.Request) {
	f, err := s.features.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.handleServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, formatFeature(&f))
}

// handleUpdateFeature applies a partial update.
func (s *Server) handleUpdateFeature(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := s.features.Update(r.Context(), mux.Vars(r)["id"], domain.FeatureUpdate{
		Name:       req.Name,
		Style:      req.Style,
		Visible:    req.Visible,
		Properties: req.Properties,
	})
	if err != nil {
		s.handleServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, formatFeature(&f))
}

// handleDeleteFeature removes a feature.
func (s *Server) handleDeleteFeature(w http.ResponseWriter, r *http.Request) {
	if err := s.features.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleToggleVisibility flips a feature's visible flag.
func (s *Server) handleToggleVisibility(w http.ResponseWriter, r *http.Request) {
	f, err := s.features.ToggleVisibility(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.handleServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, formatFeature(&f))
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.handleHistory(w, r, s.features.Undo)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.handleHistory(w, r, s.features.Redo)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, step func(context.Context) (bool, error)) {
	applied, err := step(r.Context())
	if err != nil {
		s.handleServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"applied": applied,
		"count":   len(s.features.List(r.Context())),
	})
}

// handleDistance measures the geodesic length of a path.
func (s *Server) handleDistance(w http.ResponseWriter, r *http.Request) {
	points, _, ok := s.parsePositions(w, r)
	if !ok {
		return
	}
	m, err := s.measure.Distance(r.Context(), points)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

// handleArea measures the surface area of a ring.
func (s *Server) handleArea(w http.ResponseWriter, r *http.Request) {
	points, _, ok := s.parsePositions(w, r)
	if !ok {
		return
	}
	m, err := s.measure.Area(r.Context(), points)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

// handleVolume computes the terrain cut volume of a footprint.
func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	points, base, ok := s.parsePositions(w, r)
	if !ok {
		return
	}
	sample, err := s.volume.Compute(r.Context(), points, base)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sample)
}

// handleSync handles the sync trigger endpoint.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.sync.TriggerSync(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrRateLimited) {
			w.Header().Set("Retry-After", "30")
			s.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again in 30 seconds.")
			return
		}
		s.logger.Error("sync failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Sync failed")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handlePublish uploads the current export to storage.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	key, err := s.sync.Publish(r.Context())
	if err != nil {
		s.handleServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

// parsePositions decodes a positionsRequest and writes a 400 on failure.
func (s *Server) parsePositions(w http.ResponseWriter, r *http.Request) ([]domain.GeodeticPosition, float64, bool) {
	var req positionsRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil, 0, false
	}

	points := make([]domain.GeodeticPosition, len(req.Points))
	for i, p := range req.Points {
		if len(p) < 2 || len(p) > 3 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("point %d: want [lon, lat] or [lon, lat, height]", i))
			return nil, 0, false
		}
		points[i] = domain.NewGeodeticPosition(p[0], p[1])
		if len(p) == 3 {
			points[i].Height = p[2]
		}
	}
	return points, req.BaseHeight, true
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := r.Body
	if s.config.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return data, nil
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	data, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// formatFeature formats a feature for JSON output.
func formatFeature(f *domain.Feature) map[string]interface{} {
	positions := make([][]float64, len(f.Positions))
	for i, p := range f.Positions {
		positions[i] = []float64{p.Longitude, p.Latitude, p.Height}
	}
	return map[string]interface{}{
		"id":         f.ID,
		"kind":       f.Kind.String(),
		"name":       f.Name,
		"positions":  positions,
		"style":      f.Style,
		"visible":    f.Visible,
		"properties": f.Properties,
		"created_at": f.CreatedAt,
		"updated_at": f.UpdatedAt,
	}
}

// handleServiceError maps domain errors onto HTTP status codes.
func (s *Server) handleServiceError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		s.writeError(w, http.StatusBadRequest, validationErr.Message)
	case domain.IsNotFound(err):
		s.writeError(w, http.StatusNotFound, err.Error())
	case domain.IsInvalidInput(err):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnsupported):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case domain.IsUnavailable(err):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Request failed")
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}
