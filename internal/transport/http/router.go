package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-anon-inbox/internal/application/account"
	"github.com/go-anon-inbox/internal/application/credential"
	"github.com/go-anon-inbox/internal/application/inbox"
	"github.com/go-anon-inbox/internal/application/message"
	"github.com/go-anon-inbox/internal/application/otp"
	"github.com/go-anon-inbox/internal/application/session"
	"github.com/go-anon-inbox/internal/application/suggestion"
	"github.com/go-anon-inbox/internal/config"
	"github.com/go-anon-inbox/internal/transport/http/handler"
	appmiddleware "github.com/go-anon-inbox/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(appmiddleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	creds := credential.NewService(deps.Accounts)
	accountSvc := account.NewService(creds, deps.Accounts, otp.NewVerifier(cfg.OTPExpiry), deps.Mailer)
	sessionSvc := session.NewService(creds, deps.Tokens)
	inboxSvc := inbox.NewService(deps.Accounts, deps.Events)
	messageSvc := message.NewService(deps.Accounts, deps.Exporter, cfg.ExportURLTTL)
	suggestionSvc := suggestion.NewService(deps.Generator)

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(accountSvc, inboxSvc)
	sessionH := handler.NewSessionHandler(sessionSvc)
	messageH := handler.NewMessageHandler(inboxSvc, messageSvc)
	suggestionH := handler.NewSuggestionHandler(suggestionSvc)

	authMw := appmiddleware.Auth(sessionSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/accounts", accountH.Signup)
		r.Post("/accounts/{handle}/verify", accountH.Verify)
		r.Post("/accounts/{handle}/verify/resend", accountH.ResendCode)
		r.Get("/handles/{handle}/availability", accountH.Availability)
		r.Post("/sessions", sessionH.Login)
		r.Post("/accounts/{handle}/messages", messageH.Send)
		r.Post("/suggestions", suggestionH.Suggest)

		// ── Owner routes ─────────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.Current)
			r.Get("/accounts/{handle}/accepting", accountH.GetAccepting)
			r.Patch("/accounts/{handle}/accepting", accountH.SetAccepting)
			r.Get("/accounts/{handle}/messages", messageH.List)
			r.Delete("/accounts/{handle}/messages/{id}", messageH.Delete)
			r.Post("/accounts/{handle}/messages/export", messageH.Export)
		})
	})

	return r
}
