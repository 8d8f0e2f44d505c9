package handler

import (
	"crypto/subtle"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"go.uber.org/zap"

	"tao_dividends_api/internal/domain"
	"tao_dividends_api/internal/errors"
	"tao_dividends_api/internal/usecase"
)

const (
	minHotkeyLen = 48
	maxHotkeyLen = 64
)

// ServiceFactory builds the per request service. The handler closes it
// when the request is done.
type ServiceFactory func() *usecase.DividendService

type Handler struct {
	newService ServiceFactory
}

func NewHandler(newService ServiceFactory) *Handler {
	return &Handler{newService: newService}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/tao_dividends", h.getTaoDividends)
}

func (h *Handler) getTaoDividends(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	netuid, err := domain.ParseSubnetID(q.Get("netuid"))
	if err != nil {
		zap.L().Debug("invalid netuid param", zap.String("netuid", q.Get("netuid")), zap.Error(err))
		writeError(w, err)
		return
	}
	hotkey := q.Get("hotkey")
	if len(hotkey) < minHotkeyLen || len(hotkey) > maxHotkeyLen {
		writeError(w, errors.ErrInvalidHotkey)
		return
	}

	svc := h.newService()
	defer svc.Close()

	result, err := svc.Lookup(r.Context(), netuid, hotkey)
	if err != nil {
		var he errors.HTTPError
		if stderrors.As(err, &he) {
			zap.L().Warn("tao dividends lookup failed",
				zap.Stringer("netuid", netuid),
				zap.String("hotkey", hotkey),
				zap.Error(err))
		} else {
			zap.L().Error("unexpected tao dividends error", zap.Error(err))
		}
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

// RequireBearer rejects requests whose bearer token is not token.
func RequireBearer(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got == "" || got == r.Header.Get("Authorization") ||
				subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, errors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to write JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	msg, status := errors.PublicMessage(err)
	writeErrorJSON(w, status, msg)
}

func writeErrorJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		zap.L().Error("failed to write JSON error response", zap.Error(err))
	}
}
