// File: handler.go
package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mathCaptcha/internal/captcha"
	"mathCaptcha/internal/metrics"
)

type server struct {
	svc        *captcha.Service
	logger     zerolog.Logger
	cookieName string
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/captcha", s.handleCreate)
	mux.HandleFunc("POST /api/captcha/verify", s.handleVerify)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

// sessionKey 每个访客的 scene 互不干扰
func sessionKey(visitor, scene string) string {
	return visitor + ":" + scene
}

func (s *server) handleCreate(w http.ResponseWriter, r *http.Request) {
	scene := r.URL.Query().Get("scene")
	if scene == "" {
		metrics.ErrorsTotal.WithLabelValues("request").Inc()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "scene is required"})
		return
	}
	visitor := s.ensureVisitor(w, r)

	start := time.Now()
	img, err := s.svc.Create(r.Context(), sessionKey(visitor, scene))
	metrics.RenderSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		s.fail(w, r, scene, err)
		return
	}
	metrics.ChallengesTotal.Inc()
	s.logger.Debug().
		Str("scene", scene).
		Str("visitor", visitor).
		Msg("challenge created")

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Write(img)
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ErrorsTotal.WithLabelValues("request").Inc()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	if req.Scene == "" {
		metrics.ErrorsTotal.WithLabelValues("request").Inc()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "scene is required"})
		return
	}

	// no cookie means no challenge was ever issued to this visitor
	var visitor string
	if c, err := r.Cookie(s.cookieName); err == nil {
		visitor = c.Value
	}

	ok, err := s.svc.Verify(r.Context(), sessionKey(visitor, req.Scene), req.Code)
	if err != nil {
		s.fail(w, r, req.Scene, err)
		return
	}
	metrics.ObserveVerify(ok)
	s.logger.Info().
		Str("scene", req.Scene).
		Str("remote", r.RemoteAddr).
		Bool("success", ok).
		Msg("captcha verified")

	if !ok {
		writeJSON(w, http.StatusOK, VerifyResponse{false, "验证失败"})
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{true, "验证通过"})
}

// ensureVisitor returns the visitor id from the cookie, issuing a new one
// when it is missing or malformed.
func (s *server) ensureVisitor(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(s.cookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, scene string, err error) {
	kind := "rendering"
	switch {
	case errors.Is(err, captcha.ErrEmptyScene):
		metrics.ErrorsTotal.WithLabelValues("request").Inc()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, captcha.ErrSessionStore):
		kind = "session_store"
	}
	metrics.ErrorsTotal.WithLabelValues(kind).Inc()
	s.logger.Error().
		Err(err).
		Str("scene", scene).
		Str("remote", r.RemoteAddr).
		Str("path", r.URL.Path).
		Msg("captcha request failed")
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
