package router

import (
	"net/http"

	"github.com/simplemailer/simplemailer/internal/handler"
	"github.com/simplemailer/simplemailer/internal/middleware"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	// Mailing list management (API key required)
	mux.Handle("GET /api/mailing-list", mw.APIKey(http.HandlerFunc(h.ListRecipients)))
	mux.Handle("POST /api/mailing-list", mw.APIKey(http.HandlerFunc(h.AddRecipients)))
	mux.Handle("PUT /api/mailing-list", mw.APIKey(http.HandlerFunc(h.UpdateRecipients)))
	mux.Handle("DELETE /api/mailing-list", mw.APIKey(http.HandlerFunc(h.RemoveRecipients)))
	mux.Handle("POST /api/mailing-list/send", mw.APIKey(http.HandlerFunc(h.SendAll)))
	mux.Handle("GET /api/mailing-list/send/{runId}", mw.APIKey(http.HandlerFunc(h.GetRun)))
	mux.Handle("GET /api/mailing-list/transport", mw.APIKey(http.HandlerFunc(h.VerifyTransport)))

	// Unsubscribe links are public; the token is the credential
	mux.HandleFunc("GET /unsubscribe", h.Unsubscribe)
	mux.HandleFunc("POST /unsubscribe", h.Unsubscribe)
	mux.HandleFunc("GET /unsubscribe/{uuid}", h.Unsubscribe)
	mux.HandleFunc("POST /unsubscribe/{uuid}", h.Unsubscribe)

	// Panic recovery outermost, security headers innermost
	return middleware.Chain(mux,
		mw.Recover,
		mw.RequestID,
		mw.Logger,
		mw.SecurityHeaders,
	)
}
