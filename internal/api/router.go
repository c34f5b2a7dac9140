package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/carebook/appointment-booking/internal/auth"
	"github.com/carebook/appointment-booking/internal/booking"
)

type RouterConfig struct {
	Service   *booking.Service
	Queries   *booking.Queries
	Calendar  *booking.Calendar
	Directory booking.Directory
	Clock     booking.Clock
	OTP       *auth.OTPService
	JWTSecret string
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	clock := cfg.Clock
	if clock == nil {
		clock = booking.SystemClock{}
	}

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware)

	// Health and metrics
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", MetricsHandler())

	// Doctor directory and slot calendar
	r.Get("/doctors", listDoctorsHandler(cfg.Directory))
	r.Get("/doctors/{id}", getDoctorHandler(cfg.Directory))
	r.Get("/doctors/{id}/slots", doctorSlotsHandler(cfg.Calendar, cfg.Directory, clock))
	r.Get("/doctors/{id}/appointments", doctorAppointmentsHandler(cfg.Queries))
	r.Get("/doctors/{id}/appointments/next", doctorNextAppointmentHandler(cfg.Queries, clock))

	// Appointment lifecycle
	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Queries))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))

	// Login
	if cfg.OTP != nil {
		otpLimiter := NewRateLimiter(1, 3)
		r.With(otpLimiter.Middleware).Post("/auth/otp/request", requestOTPHandler(cfg.OTP, cfg.Env))
		r.Post("/auth/otp/verify", verifyOTPHandler(cfg.OTP))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(cfg.JWTSecret))
			r.Get("/me/appointments", myAppointmentsHandler(cfg.Queries))
		})
	}

	return r
}
