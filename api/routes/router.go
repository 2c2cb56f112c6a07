package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anandkp/shelfwise-backend/api/controllers"
	"github.com/anandkp/shelfwise-backend/api/middleware"
	checkoutsvc "github.com/anandkp/shelfwise-backend/internal/checkout"
	"github.com/anandkp/shelfwise-backend/internal/identity"
	ordersvc "github.com/anandkp/shelfwise-backend/internal/orders"
	paymentsvc "github.com/anandkp/shelfwise-backend/internal/payments"
	"github.com/anandkp/shelfwise-backend/pkg/config"
	"github.com/anandkp/shelfwise-backend/pkg/db"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
	"github.com/anandkp/shelfwise-backend/pkg/redis"
)

// NewRouter assembles the HTTP surface: public auth and health
// endpoints, the authenticated checkout flow, and the unauthenticated
// gateway callback. The callback authenticates itself through its
// signature, not a bearer token.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	identityService identity.Service,
	checkoutService checkoutsvc.Service,
	orderService ordersvc.Service,
	paymentService paymentsvc.Service,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
		cfg.RateLimit.LoginPhoneLimit,
	)
	otpPolicy := middleware.NewAuthRateLimitPolicy(
		"otp",
		cfg.RateLimit.OTPWindow,
		cfg.RateLimit.OTPIPLimit,
		cfg.RateLimit.OTPPhoneLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(identityService, logg))
		r.With(middleware.AuthRateLimit(otpPolicy, redisClient, logg)).Post("/otp/start", controllers.AuthOTPStart(identityService, logg))
		r.With(middleware.AuthRateLimit(otpPolicy, redisClient, logg)).Post("/otp/confirm", controllers.AuthOTPConfirm(identityService, logg))
	})

	r.Post("/api/v1/payments/callback", controllers.PaymentsCallback(paymentService, logg))

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.Idempotency(redisClient, logg),
		)

		r.Route("/api/v1/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutGet(checkoutService, logg))
			r.Put("/cart", controllers.CheckoutReplaceCart(checkoutService, logg))
			r.Post("/address", controllers.CheckoutSetAddress(checkoutService, logg))
			r.Post("/payment-method", controllers.CheckoutSetPaymentMethod(checkoutService, logg))
			r.Post("/coupon", controllers.CheckoutApplyCoupon(checkoutService, logg))
			r.Delete("/coupon", controllers.CheckoutRemoveCoupon(checkoutService, logg))
			r.Get("/review", controllers.CheckoutReview(checkoutService, logg))
			r.Post("/verify/start", controllers.CheckoutVerifyStart(checkoutService, logg))
			r.Post("/verify/confirm", controllers.CheckoutVerifyConfirm(checkoutService, logg))
			r.Post("/submit", controllers.CheckoutSubmit(checkoutService, logg))
		})

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(orderService, logg))
			r.Get("/{orderNumber}", controllers.OrdersDetail(orderService, logg))
		})

		r.Post("/api/v1/payments/initiate", controllers.PaymentsInitiate(paymentService, logg))
	})

	return r
}
