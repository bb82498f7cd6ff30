package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ymalspace/search-gateway/internal/metasearch"
)

type SearchHandler struct {
	service *metasearch.Service
	logger  *zap.Logger
}

func NewSearchHandler(service *metasearch.Service, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{service: service, logger: logger}
}

// Search serves GET /search?q&page&size&sources&lang.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Search(r.Context(), metasearch.Request{
		Query:    r.URL.Query().Get("q"),
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "size", 0),
		Sources:  queryList(r, "sources"),
		Language: r.URL.Query().Get("lang"),
	})
	if err != nil {
		if errors.Is(err, metasearch.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "Query parameter is required")
			return
		}
		h.logger.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeData(w, http.StatusOK, page)
}

// Proxy serves GET /api/search?q&page in the single-backend proxy shape. It
// answers 200 even when every backend failed.
func (h *SearchHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Proxy(r.Context(), r.URL.Query().Get("q"), queryInt(r, "page", 1))
	if err != nil {
		if errors.Is(err, metasearch.ErrEmptyQuery) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Query parameter is required"})
			return
		}
		h.logger.Error("proxy search failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Search temporarily unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SearchHandler) Health(w http.ResponseWriter, r *http.Request) {
	catalog := h.service.Catalog()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sources":  h.service.BreakerStates(),
		"promoted": catalog.Len(),
	})
}
