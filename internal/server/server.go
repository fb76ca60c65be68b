// Package server is the loopback control surface. It serves the local
// error page the web views fall back to, takes deep links from other
// processes on the machine, renders a phone handoff QR code and
// streams bridge traffic to a debugging console.
//
// It binds to 127.0.0.1 only; the retry endpoint is additionally
// guarded with a securecookie token so a page cannot forge a retry
// for a tab it was not served for.
package server

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/stridefit/stride/internal/shell"
	"github.com/stridefit/stride/internal/tabroute"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Server struct {
	shell  *shell.Shell
	cookie *securecookie.SecureCookie
	hub    *Hub
	logger *slog.Logger
}

// New builds the control server. key signs retry tokens; pass the
// per-install control key from config.
func New(sh *shell.Shell, key []byte, logger *slog.Logger) *Server {
	return &Server{
		shell:  sh,
		cookie: securecookie.New(key, nil),
		hub:    NewHub(logger),
		logger: logger,
	}
}

// Hub exposes the console hub so it can be wired as the shell's
// bridge tap.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Handler() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)

	r.Get("/error", s.handleErrorPage)
	r.Post("/error/retry", s.handleRetry)
	r.Post("/deeplink", s.handleDeepLink)
	r.Get("/handoff", s.handleHandoffPage)
	r.Get("/handoff/qr", s.handleHandoffQR)
	r.Get("/console", s.handleConsolePage)
	r.Get("/console/ws", s.handleConsoleWS)

	return r
}

func (s *Server) handleErrorPage(w http.ResponseWriter, r *http.Request) {
	tab, ok := tabroute.ParseTab(r.URL.Query().Get("tab"))
	if !ok {
		http.Error(w, "unknown tab", http.StatusBadRequest)
		return
	}

	token, err := s.cookie.Encode("retry", string(tab))
	if err != nil {
		s.serverError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, errorPageHTML, tab, token)
}

type retryRequest struct {
	Tab   string `json:"tab"`
	Token string `json:"token"`
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	var req retryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var signed string
	if err := s.cookie.Decode("retry", req.Token, &signed); err != nil || signed != req.Tab {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	tab, ok := tabroute.ParseTab(req.Tab)
	if !ok {
		http.Error(w, "unknown tab", http.StatusBadRequest)
		return
	}

	c, ok := s.shell.Controller(tab)
	if !ok {
		http.Error(w, "tab not mounted", http.StatusConflict)
		return
	}

	s.logger.Info("manual retry requested", "tab", tab)
	c.RetryManually()
	w.WriteHeader(http.StatusNoContent)
}

type deepLinkRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleDeepLink(w http.ResponseWriter, r *http.Request) {
	var req deepLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := s.shell.HandleDeepLink(req.URL); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHandoffPage(w http.ResponseWriter, r *http.Request) {
	path := normalizeHandoffPath(r.URL.Query().Get("path"))
	target := s.handoffTarget(path)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, handoffPageHTML, html.EscapeString(target), url.QueryEscape(path))
}

func (s *Server) handleHandoffQR(w http.ResponseWriter, r *http.Request) {
	target := s.handoffTarget(normalizeHandoffPath(r.URL.Query().Get("path")))

	png, err := qrcode.Encode(target, qrcode.Medium, 256)
	if err != nil {
		s.serverError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *Server) handleConsolePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, consolePageHTML)
}

func (s *Server) handleConsoleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("console upgrade failed", "err", err)
		return
	}

	c := newClient(conn)
	s.hub.register(c)
	go c.writePump()
	c.readPump(func() {
		s.hub.unregister(c)
	})
}

// handoffTarget builds the public app URL the phone should open.
func (s *Server) handoffTarget(path string) string {
	return strings.TrimRight(s.shell.AppURL(), "/") + path
}

func normalizeHandoffPath(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Error("control server error", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
