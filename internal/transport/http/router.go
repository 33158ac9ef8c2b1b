package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

const qrSize = 320

// SessionReader exposes read-only session views.
type SessionReader interface {
	Snapshot(ctx context.Context, pin string) (app.SessionSnapshot, error)
}

// RouterOptions configures the HTTP surface.
type RouterOptions struct {
	AllowedOrigins []string
	// PublicURL overrides the scheme and host encoded in join QR codes.
	PublicURL string
}

// NewRouter mounts the websocket endpoint and the read API behind CORS.
func NewRouter(ws *WSHandler, sessions SessionReader, opts RouterOptions) http.Handler {
	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, "/ws", ws.ServeWS)
	router.GET("/healthz", healthHandler)
	router.GET("/api/sessions/:pin", snapshotHandler(sessions))
	router.GET("/api/sessions/:pin/qr", qrHandler(sessions, opts.PublicURL))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedOrigins: origins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(router)
}

func healthHandler(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func snapshotHandler(sessions SessionReader) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		snap, ok := lookup(w, r, sessions, ps.ByName("pin"))
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			log.Debug().Err(err).Msg("write snapshot")
		}
	}
}

// qrHandler renders a PNG QR code pointing players at the join page for a live session.
func qrHandler(sessions SessionReader, publicURL string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		snap, ok := lookup(w, r, sessions, ps.ByName("pin"))
		if !ok {
			return
		}

		png, err := qrcode.Encode(joinURL(r, publicURL, snap.PIN), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func lookup(w http.ResponseWriter, r *http.Request, sessions SessionReader, pin string) (app.SessionSnapshot, bool) {
	if err := domain.ValidatePin(pin); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return app.SessionSnapshot{}, false
	}
	snap, err := sessions.Snapshot(r.Context(), pin)
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return app.SessionSnapshot{}, false
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return app.SessionSnapshot{}, false
	}
	return snap, true
}

func joinURL(r *http.Request, publicURL, pin string) string {
	base := strings.TrimSuffix(publicURL, "/")
	if base == "" {
		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/play?pin=" + url.QueryEscape(pin)
}
