package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/NeonAnubis/afrimail-backend/internal/api/handler"
	"github.com/NeonAnubis/afrimail-backend/internal/api/middleware"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
	"github.com/NeonAnubis/afrimail-backend/internal/mailcow"
	"github.com/NeonAnubis/afrimail-backend/internal/mailer"
)

// Server assembles the HTTP API: health and metrics endpoints, the
// admin surface under /api/v1, and the end-user surface under
// /api/v1/me.
type Server struct {
	router *chi.Mux
	logger zerolog.Logger
	pool   *pgxpool.Pool
	mc     *mailcow.Client
	audit  *middleware.AuditLogger
}

func NewServer(
	logger zerolog.Logger,
	pool *pgxpool.Pool,
	services *core.Services,
	mc *mailcow.Client,
	mail *mailer.Mailer,
) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger,
		pool:   pool,
		mc:     mc,
		audit:  middleware.NewAuditLogger(pool, logger),
	}
	s.setupMiddleware()
	s.setupRoutes(services, mail)
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.RequestLogger(s.logger))
	s.router.Use(chimw.Recoverer)
	s.router.Use(middleware.Metrics)
}

func (s *Server) setupRoutes(services *core.Services, mail *mailer.Mailer) {
	authH := handler.NewAuth(services.Auth, services.LoginActivity)
	domainH := handler.NewDomain(services.Domain)
	mailboxH := handler.NewMailbox(services.Mailbox)
	aliasH := handler.NewAlias(services.Alias)
	sendingH := handler.NewSending(services.SendingLimit)
	tierH := handler.NewTier(services.SendingTier)
	scheduledH := handler.NewScheduled(services.ScheduledAction)
	userH := handler.NewUser(services.User)
	customDomainH := handler.NewCustomDomain(services.CustomDomain)
	announcementH := handler.NewAnnouncement(services.Announcement)
	supportH := handler.NewSupport(services.SupportTicket)
	auditH := handler.NewAudit(services.Audit)
	groupH := handler.NewGroup(services.UserGroup)
	templateH := handler.NewTemplate(services.UserTemplate)
	storageH := handler.NewStorage(services.Storage)
	activityH := handler.NewActivity(services.LoginActivity)
	mailcowH := handler.NewMailcow(s.mc)
	meH := handler.NewMe(
		services.User, services.Mailbox, services.SendingLimit,
		services.SupportTicket, services.Announcement, services.CustomDomain,
		mail,
	)

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authH.AdminLogin)
		r.Post("/auth/user/login", authH.UserLogin)

		// Admin surface. Every mutating request is audit logged.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth))
			r.Use(middleware.RequireAdmin)
			r.Use(s.audit.Middleware)

			r.Route("/admins", func(r chi.Router) {
				r.Use(middleware.RequireSuperadmin)
				r.Get("/", authH.ListAdmins)
				r.Post("/", authH.CreateAdmin)
				r.Put("/{id}/active", authH.SetAdminActive)
			})

			r.Route("/domains", func(r chi.Router) {
				r.Get("/", domainH.List)
				r.Post("/", domainH.Create)
				r.Get("/{id}", domainH.Get)
				r.Put("/{id}", domainH.Update)
				r.Delete("/{id}", domainH.Delete)
				r.Post("/{id}/sync", domainH.Sync)
			})

			r.Route("/mailboxes", func(r chi.Router) {
				r.Get("/", mailboxH.List)
				r.Post("/", mailboxH.Create)
				r.Get("/{email}", mailboxH.Get)
				r.Put("/{email}/quota", mailboxH.UpdateQuota)
				r.Put("/{email}/password", mailboxH.SetPassword)
				r.Post("/{email}/activate", mailboxH.Activate)
				r.Post("/{email}/deactivate", mailboxH.Deactivate)
				r.Delete("/{email}", mailboxH.Delete)
				r.Post("/{email}/sync", mailboxH.Sync)
				r.Post("/sync/{domain}", mailboxH.SyncDomain)
			})

			r.Route("/aliases", func(r chi.Router) {
				r.Get("/", aliasH.List)
				r.Post("/", aliasH.Create)
				r.Post("/catch-all", aliasH.CreateCatchAll)
				r.Get("/sync-status", aliasH.CheckSync)
				r.Get("/{id}", aliasH.Get)
				r.Put("/{id}", aliasH.Update)
				r.Delete("/{id}", aliasH.Delete)
				r.Post("/{id}/adopt", aliasH.AdoptExternalID)
			})

			r.Route("/sending", func(r chi.Router) {
				r.Get("/stats", sendingH.Stats)
				r.Get("/limits", sendingH.ListLimits)
				r.Get("/limits/{userID}", sendingH.GetLimit)
				r.Put("/limits/{userID}", sendingH.UpdateLimits)
				r.Post("/limits/{userID}/suspend", sendingH.Suspend)
				r.Post("/limits/{userID}/resume", sendingH.Resume)
				r.Post("/limits/{userID}/reset", sendingH.ResetCounters)
				r.Get("/violations", sendingH.ListViolations)
				r.Post("/violations/{id}/resolve", sendingH.ResolveViolation)
				r.Get("/history/{userID}", sendingH.SendHistory)
			})

			r.Route("/tiers", func(r chi.Router) {
				r.Get("/", tierH.List)
				r.Post("/", tierH.Create)
				r.Get("/{name}", tierH.Get)
				r.Put("/{name}", tierH.Update)
				r.Delete("/{name}", tierH.Delete)
			})

			r.Route("/scheduled-actions", func(r chi.Router) {
				r.Get("/", scheduledH.List)
				r.Post("/", scheduledH.Create)
				r.Get("/{id}", scheduledH.Get)
				r.Post("/{id}/cancel", scheduledH.Cancel)
				r.Delete("/{id}", scheduledH.Delete)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userH.List)
				r.Post("/", userH.Create)
				r.Post("/find-by-recovery", userH.FindByRecovery)
				r.Get("/{id}", userH.Get)
				r.Post("/{email}/suspend", userH.Suspend)
				r.Post("/{email}/unsuspend", userH.Unsuspend)
				r.Delete("/{email}", userH.Delete)
			})

			r.Route("/custom-domains", func(r chi.Router) {
				r.Get("/", customDomainH.List)
				r.Post("/", customDomainH.Register)
				r.Get("/{id}", customDomainH.Get)
				r.Post("/{id}/verify", customDomainH.Verify)
				r.Delete("/{id}", customDomainH.Delete)
			})

			r.Route("/announcements", func(r chi.Router) {
				r.Get("/", announcementH.List)
				r.Post("/", announcementH.Create)
				r.Put("/{id}", announcementH.Update)
				r.Delete("/{id}", announcementH.Delete)
			})

			r.Route("/support-tickets", func(r chi.Router) {
				r.Get("/", supportH.List)
				r.Get("/{id}", supportH.Get)
				r.Post("/{id}/reply", supportH.Reply)
			})

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", groupH.List)
				r.Post("/", groupH.Create)
				r.Get("/{id}", groupH.Get)
				r.Put("/{id}", groupH.Update)
				r.Delete("/{id}", groupH.Delete)
				r.Get("/{id}/members", groupH.Members)
				r.Post("/{id}/members", groupH.AddMembers)
				r.Delete("/{id}/members/{userID}", groupH.RemoveMember)
			})

			r.Route("/templates", func(r chi.Router) {
				r.Get("/", templateH.List)
				r.Post("/", templateH.Create)
				r.Get("/{id}", templateH.Get)
				r.Put("/{id}", templateH.Update)
				r.Delete("/{id}", templateH.Delete)
			})

			r.Route("/storage", func(r chi.Router) {
				r.Get("/", storageH.Overview)
				r.Get("/stats", storageH.Stats)
				r.Get("/presets", storageH.Presets)
				r.Put("/presets", storageH.SetPresets)
			})

			r.Route("/activity", func(r chi.Router) {
				r.Get("/", activityH.List)
				r.Get("/stats", activityH.Stats)
				r.Get("/inactive", activityH.Inactive)
			})

			r.Get("/audit-logs", auditH.List)

			r.Route("/mailcow", func(r chi.Router) {
				r.Get("/health", mailcowH.Health)
				r.Get("/status", mailcowH.Status)
				r.Get("/dkim/{domain}", mailcowH.GetDKIM)
				r.Post("/dkim", mailcowH.CreateDKIM)
				r.Delete("/dkim/{domain}", mailcowH.DeleteDKIM)
				r.Get("/logs/{type}", mailcowH.GetLogs)
				r.Get("/ratelimits/{email}", mailcowH.GetRatelimit)
				r.Put("/ratelimits/{email}", mailcowH.SetRatelimit)
			})
		})

		// End-user surface.
		r.Route("/me", func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth))

			r.Get("/", meH.Profile)
			r.Put("/", meH.UpdateProfile)
			r.Put("/password", meH.ChangePassword)
			r.Put("/recovery", meH.UpdateRecovery)
			r.Get("/mailbox", meH.Mailbox)
			r.Get("/limit", meH.Limit)
			r.Post("/send-check", meH.SendCheck)
			r.Get("/tickets", meH.ListTickets)
			r.Post("/tickets", meH.CreateTicket)
			r.Get("/announcements", meH.Announcements)
			r.Route("/custom-domains", func(r chi.Router) {
				r.Get("/", meH.ListDomains)
				r.Post("/", meH.RegisterDomain)
				r.Post("/{id}/verify", meH.VerifyDomain)
				r.Delete("/{id}", meH.DeleteDomain)
			})
		})
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports readiness. The database must answer; the mail
// control plane is reported but never fails the check, the API serves
// local state without it.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.Ping(r.Context()); err != nil {
		response.WriteError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}

	mailcowStatus := "not_configured"
	if s.mc.IsConfigured() {
		if s.mc.HealthCheck(r.Context()) {
			mailcowStatus = "ok"
		} else {
			mailcowStatus = "unreachable"
		}
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"mailcow": mailcowStatus,
	})
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Close flushes the audit log writer.
func (s *Server) Close() {
	s.audit.Close()
}
