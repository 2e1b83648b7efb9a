// Package handlers provides the HTTP handlers of the drug registry API: drug
// search and lookup, classifications, cache status and forced reloads.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/giygas/drugregistry/interfaces"
	"github.com/giygas/drugregistry/loader"
	"github.com/giygas/drugregistry/logging"
	"github.com/giygas/drugregistry/registryparser/entities"
	"github.com/go-chi/chi/v5"
)

// PageSize is the number of drugs per page of /v1/drugs.
const PageSize = 10

// HTTPHandlerImpl serves the /v1 API and /health from a cache service.
type HTTPHandlerImpl struct {
	cache     interfaces.CacheService
	validator interfaces.DataValidator
	health    interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(cache interfaces.CacheService, validator interfaces.DataValidator, health interfaces.HealthChecker) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		cache:     cache,
		validator: validator,
		health:    health,
	}
}

// DrugPage is one page of drugs.
type DrugPage struct {
	Data       []entities.Drug `json:"data"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalItems int             `json:"totalItems"`
	MaxPage    int             `json:"maxPage"`
}

// CacheStatusResponse is the body of GET /v1/cache/status.
type CacheStatusResponse struct {
	Datasets    map[string]interfaces.DatasetStatus `json:"datasets"`
	DataQuality *interfaces.DataQualityReport       `json:"dataQuality,omitempty"`
}

// ReloadResponse is the body of POST /v1/cache/{dataset}/reload.
type ReloadResponse struct {
	Dataset string `json:"dataset"`
	Started bool   `json:"started"`
}

// RespondWithJSON writes payload as JSON with the given status code
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	h.RespondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

// unavailable answers 503 while a dataset has no loaded data to serve: before
// the first load and during a forced reload. It reports whether it wrote a
// response.
func (h *HTTPHandlerImpl) unavailable(w http.ResponseWriter, isLoaded, isLoading bool, loadErr string) bool {
	if isLoaded {
		return false
	}
	w.Header().Set("Retry-After", "30")
	switch {
	case isLoading:
		h.RespondWithError(w, http.StatusServiceUnavailable, "Data is loading, try again shortly")
	case loadErr != "":
		h.RespondWithError(w, http.StatusServiceUnavailable, "Data is unavailable: "+loadErr)
	default:
		h.RespondWithError(w, http.StatusServiceUnavailable, "Data is not loaded yet")
	}
	return true
}

// setLastModified sets Last-Modified from the snapshot write time and
// answers 304 when the client copy is current.
func setLastModified(w http.ResponseWriter, r *http.Request, writtenAt time.Time) bool {
	if writtenAt.IsZero() {
		return false
	}
	w.Header().Set("Last-Modified", writtenAt.UTC().Format(http.TimeFormat))
	if since, err := http.ParseTime(r.Header.Get("If-Modified-Since")); err == nil {
		if !writtenAt.Truncate(time.Second).After(since) {
			w.WriteHeader(http.StatusNotModified)
			return true
		}
	}
	return false
}

// ListDrugs serves GET /v1/drugs?q=&page=. Without q it pages through the
// whole dataset in feed order; with q it pages through search results.
func (h *HTTPHandlerImpl) ListDrugs(w http.ResponseWriter, r *http.Request) {
	page, err := h.validator.ValidatePage(r.URL.Query().Get("page"))
	if err != nil {
		logging.Warn("Unusual user input", "page", r.URL.Query().Get("page"))
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query().Get("q")
	if query != "" {
		if err := h.validator.ValidateInput(query); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	drugsData := h.cache.GetDrugsData()
	if h.unavailable(w, drugsData.IsLoaded, drugsData.IsLoading, drugsData.Error) {
		return
	}
	if query == "" && setLastModified(w, r, h.cache.GetCacheStatus()[interfaces.DatasetDrugs].WrittenAt) {
		return
	}

	drugs := drugsData.Entities
	if query != "" {
		drugs = drugsData.SearchIndex.Search(query, 0)
	}

	total := len(drugs)
	maxPage := (total + PageSize - 1) / PageSize
	start := (page - 1) * PageSize
	if start >= total && page > 1 {
		h.RespondWithError(w, http.StatusNotFound, "Page not found")
		return
	}
	end := min(start+PageSize, total)

	pageData := []entities.Drug{}
	if start < end {
		pageData = drugs[start:end]
	}

	h.RespondWithJSON(w, http.StatusOK, DrugPage{
		Data:       pageData,
		Page:       page,
		PageSize:   PageSize,
		TotalItems: total,
		MaxPage:    maxPage,
	})
}

// GetDrug serves GET /v1/drugs/{id}.
func (h *HTTPHandlerImpl) GetDrug(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > 64 {
		h.RespondWithError(w, http.StatusBadRequest, "Invalid drug id")
		return
	}

	drugsData := h.cache.GetDrugsData()
	if h.unavailable(w, drugsData.IsLoaded, drugsData.IsLoading, drugsData.Error) {
		return
	}

	drug, ok := drugsData.SearchIndex.Lookup(id)
	if !ok {
		h.RespondWithError(w, http.StatusNotFound, "Drug not found")
		return
	}

	h.RespondWithJSON(w, http.StatusOK, drug)
}

// ListClassifications serves GET /v1/classifications.
func (h *HTTPHandlerImpl) ListClassifications(w http.ResponseWriter, r *http.Request) {
	classData := h.cache.GetClassificationData()
	if h.unavailable(w, classData.IsLoaded, classData.IsLoading, classData.Error) {
		return
	}
	if setLastModified(w, r, h.cache.GetCacheStatus()[interfaces.DatasetClassifications].WrittenAt) {
		return
	}

	h.RespondWithJSON(w, http.StatusOK, classData.Entities)
}

// CacheStatus serves GET /v1/cache/status.
func (h *HTTPHandlerImpl) CacheStatus(w http.ResponseWriter, r *http.Request) {
	h.RespondWithJSON(w, http.StatusOK, CacheStatusResponse{
		Datasets:    h.cache.GetCacheStatus(),
		DataQuality: h.cache.GetLastReport(),
	})
}

// ReloadDataset serves POST /v1/cache/{dataset}/reload. The reload runs in
// the background: 202 when it started, 409 when one is already in flight.
func (h *HTTPHandlerImpl) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")
	if err := h.validator.ValidateDatasetKey(dataset); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	started, err := h.cache.ForceReload(dataset)
	switch {
	case errors.Is(err, loader.ErrUnknownDataset):
		h.RespondWithError(w, http.StatusNotFound, "Unknown dataset: "+dataset)
		return
	case err != nil:
		logging.Error("Forced reload failed to start", "dataset", dataset, "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Reload could not be started")
		return
	}

	logging.Info("Forced reload requested", "dataset", dataset, "started", started, "remote_addr", r.RemoteAddr)

	code := http.StatusAccepted
	if !started {
		code = http.StatusConflict
	}
	h.RespondWithJSON(w, code, ReloadResponse{Dataset: dataset, Started: started})
}

// HealthCheck serves GET /health.
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, httpStatus := h.health.HealthCheck()

	body := map[string]any{"status": status}
	for k, v := range details {
		body[k] = v
	}

	w.Header().Set("Cache-Control", "no-store")
	h.RespondWithJSON(w, httpStatus, body)
}
