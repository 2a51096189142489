package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Wewst/coffe-pass/internal/config"
	allowancesvc "github.com/Wewst/coffe-pass/internal/services/allowance"
	authsvc "github.com/Wewst/coffe-pass/internal/services/auth"
	partnersvc "github.com/Wewst/coffe-pass/internal/services/partners"
	paymentsvc "github.com/Wewst/coffe-pass/internal/services/payments"
	ratesvc "github.com/Wewst/coffe-pass/internal/services/rate"
	redemptionsvc "github.com/Wewst/coffe-pass/internal/services/redemptions"
	"github.com/Wewst/coffe-pass/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService       *authsvc.Service
	AllowanceService  *allowancesvc.Service
	PaymentService    *paymentsvc.Service
	RedemptionService *redemptionsvc.Service
	PartnerService    *partnersvc.Service
	RateLimiter       *ratesvc.Limiter
	Logger            *zap.Logger
	Config            config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	stateHandler := handlers.NewStateHandler(deps.AllowanceService, deps.PartnerService, deps.Config.Pass.Price)
	purchaseHandler := handlers.NewPurchaseHandler(deps.PaymentService, deps.Config.Pass.Price)
	codesHandler := handlers.NewCodesHandler(deps.RedemptionService, deps.RateLimiter)
	historyHandler := handlers.NewHistoryHandler(deps.PaymentService, deps.RedemptionService)
	partnersHandler := handlers.NewPartnersHandler(deps.PartnerService)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/telegram", authHandler.Telegram)
			r.Post("/refresh", authHandler.Refresh)
			r.With(authMW).Post("/logout", authHandler.Logout)
			r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
		})

		r.With(authMW).Get("/user/state", stateHandler.State)
		r.With(authMW).Post("/purchase", purchaseHandler.Create)
		r.Post("/purchase/webhook", purchaseHandler.Webhook)
		r.With(authMW).Post("/codes/generate", codesHandler.Generate)
		r.With(authMW).Post("/codes/redeem", codesHandler.Redeem)
		r.With(authMW).Get("/history", historyHandler.History)
		r.Get("/partners", partnersHandler.List)
	})
}
