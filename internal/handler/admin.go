package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ymalspace/search-gateway/internal/middleware"
	"github.com/ymalspace/search-gateway/internal/promoted"
)

const tokenTTL = 12 * time.Hour

type AdminOptions struct {
	Username     string
	PasswordHash string
	JWTSecret    string
}

type AdminHandler struct {
	opts    AdminOptions
	catalog *promoted.Catalog
	logger  *zap.Logger
	now     func() time.Time
}

func NewAdminHandler(opts AdminOptions, catalog *promoted.Catalog, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{opts: opts, catalog: catalog, logger: logger, now: time.Now}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.opts.PasswordHash == "" {
		writeError(w, http.StatusServiceUnavailable, "admin login is disabled")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.opts.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(h.opts.PasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		h.logger.Warn("admin login rejected", zap.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := middleware.IssueToken(h.opts.JWTSecret, req.Username, tokenTTL, h.now())
	if err != nil {
		h.logger.Error("sign admin token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *AdminHandler) ReloadPromoted(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	count, err := h.catalog.Reload(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, "promoted reload failed: "+err.Error())
		return
	}
	admin, _ := middleware.GetAdmin(r)
	h.logger.Info("promoted inventory reloaded", zap.String("by", admin.Username), zap.Int("count", count))
	writeData(w, http.StatusOK, map[string]any{"count": count})
}

func (h *AdminHandler) ListPromoted(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]any{
		"promoted_results": h.catalog.All(),
		"loadedAt":         h.catalog.LoadedAt(),
	})
}
