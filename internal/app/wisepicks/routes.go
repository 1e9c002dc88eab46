package wisepicks

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	adminhandler "github.com/magabrotheeeer/wisepicks/internal/http/handlers/admin"
	authhandler "github.com/magabrotheeeer/wisepicks/internal/http/handlers/auth"
	dashboardhandler "github.com/magabrotheeeer/wisepicks/internal/http/handlers/dashboard"
	"github.com/magabrotheeeer/wisepicks/internal/http/handlers/health"
	"github.com/magabrotheeeer/wisepicks/internal/http/handlers/notifications"
	paymenthandler "github.com/magabrotheeeer/wisepicks/internal/http/handlers/payment"
	tipshandler "github.com/magabrotheeeer/wisepicks/internal/http/handlers/tips"
	"github.com/magabrotheeeer/wisepicks/internal/http/middlewarectx"
)

// Handlers обработчики, которые монтирует RegisterRoutes.
type Handlers struct {
	Auth          *authhandler.Handler
	Tips          *tipshandler.Handler
	Payment       *paymenthandler.Handler
	Dashboard     *dashboardhandler.Handler
	Notifications *notifications.Handler
	Admin         *adminhandler.Handler
	Health        *health.Handler
	Realtime      http.Handler
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, auth middlewarectx.Authenticator, limiter *middlewarectx.RateLimiter, h Handlers) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		middlewarectx.Metrics,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limiter.Middleware(logger))
		r.Use(middlewarectx.Sanitize(logger))

		// Открытые конечные точки
		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/refresh-token", h.Auth.Refresh)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(auth, logger))

			r.Get("/auth/me", h.Auth.Me)
			r.Post("/auth/logout", h.Auth.Logout)
			r.Put("/auth/update-profile", h.Auth.UpdateProfile)

			r.Get("/tips", h.Tips.List)

			r.Post("/payment/checkout", h.Payment.Checkout)
			r.Get("/payment/status/{id}", h.Payment.Status)
			r.Post("/payment/confirm/{id}", h.Payment.Confirm)

			r.Get("/dashboard/user-data", h.Dashboard.UserData)
			r.Post("/dashboard/calculate", h.Dashboard.Calculate)
			r.Post("/dashboard/bankroll", h.Dashboard.Bankroll)
			r.Post("/dashboard/bet", h.Dashboard.Bet)
			r.With(middlewarectx.RequirePremium(logger)).Post("/dashboard/convert", h.Dashboard.Convert)

			r.Get("/notifications", h.Notifications.List)
			r.Patch("/notifications/read-all", h.Notifications.MarkAllRead)
			r.Patch("/notifications/{id}/read", h.Notifications.MarkRead)

			// Администрирование
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnly(logger))

				r.Post("/tips", h.Tips.Create)
				r.Delete("/tips/{id}", h.Tips.Delete)
				r.Patch("/tips/{id}/result", h.Tips.SetResult)

				r.Get("/admin/users", h.Admin.Users)
				r.Get("/admin/dashboard", h.Admin.Dashboard)
				r.Post("/admin/users/{id}/ban", h.Admin.Ban)
				r.Post("/admin/users/{id}/unban", h.Admin.Unban)
				r.Post("/admin/users/{id}/premium", h.Admin.Premium)
				r.Post("/admin/users/{id}/remove-premium", h.Admin.RemovePremium)
				r.Post("/admin/users/{id}/reset-password", h.Admin.ResetPassword)
			})
		})
	})

	// Websocket аутентифицируется сам: браузер не умеет слать заголовки при апгрейде.
	r.Handle("/ws", h.Realtime)
	r.Handle("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
