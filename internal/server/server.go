package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/01030959804/affiliate-ledger/internal/app"
	"github.com/01030959804/affiliate-ledger/internal/config"
	"github.com/01030959804/affiliate-ledger/internal/cookie"
	"github.com/01030959804/affiliate-ledger/internal/logger"
)

type Server struct {
	handlers   *handlers
	app        *app.App
	flagConfig *config.FlagConfig
	log        *logger.Logger
}

func NewServer(app *app.App, flagConfig *config.FlagConfig, l *logger.Logger) *Server {
	handlers := newHandlers(app, flagConfig, l)
	return &Server{handlers: handlers, app: app, flagConfig: flagConfig, log: l}
}

// throttleMiddleware sheds load before any handler runs. The instance-wide
// limiter is separate from the per-affiliate order cap.
func throttleMiddleware(limiter *rate.Limiter) func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			h.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

func (server *Server) newRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(server.log.WithLogging())
	router.Use(throttleMiddleware(rate.NewLimiter(rate.Limit(100), 200)))
	router.Route("/api/affiliate", func(r chi.Router) {
		r.With(cookie.SetCookieMiddleware()).Post("/register", server.handlers.registerHandler)
		r.With(cookie.SetCookieMiddleware()).Post("/session", server.handlers.sessionHandler)
		r.Group(func(r chi.Router) {
			r.Use(cookie.CheckCookieMiddleware())
			r.Get("/balance", server.handlers.getBalanceHandler)
			r.Post("/orders", server.handlers.postOrderHandler)
			r.Get("/orders", server.handlers.getOrdersHandler)
			r.Post("/withdrawals", server.handlers.postWithdrawalHandler)
			r.Get("/withdrawals", server.handlers.getWithdrawalsHandler)
		})
	})
	router.Route("/api/admin", func(r chi.Router) {
		r.Get("/affiliates", server.handlers.listAffiliateStatsHandler)
		r.Get("/affiliates/{affiliateID}", server.handlers.getAffiliateHandler)
		r.Delete("/affiliates/{affiliateID}", server.handlers.deleteAffiliateHandler)
		r.Get("/orders", server.handlers.listOrdersHandler)
		r.Post("/orders/{orderID}/confirm", server.handlers.confirmOrderHandler)
		r.Post("/orders/{orderID}/cancel", server.handlers.cancelOrderHandler)
		r.Get("/withdrawals", server.handlers.listWithdrawalsHandler)
		r.Post("/withdrawals/{withdrawalID}/approve", server.handlers.approveWithdrawalHandler)
		r.Post("/withdrawals/{withdrawalID}/reject", server.handlers.rejectWithdrawalHandler)
		r.Get("/reports", server.handlers.ledgerReportsHandler)
	})
	return router
}

func Run(server *Server) error {
	server.log.Sugar().Infof("Running server on %s", server.flagConfig.FlagRunAddr)
	return http.ListenAndServe(server.flagConfig.FlagRunAddr, server.newRouter())
}
