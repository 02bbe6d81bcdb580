package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterConfig carries the process settings the router needs.
type RouterConfig struct {
	AllowedOrigins []string
	Env            string
	Version        string
}

func NewRouter(
	cfg RouterConfig,
	JWTService jwt.Service,
	policyHandler PolicyHandler,
	attendanceHandler AttendanceHandler,
	balanceHandler BalanceHandler,
	batchHandler BatchHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(cfg.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-attendance-engine"),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	// IP allow-lists on clock events read the client address.
	r.Use(chiMiddleware.RealIP)

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

		r.Route("/policies", func(r chi.Router) {
			r.Get("/", policyHandler.List)
			r.Get("/effective", policyHandler.Effective)
			r.Get("/active", policyHandler.Active)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminOnly)
				r.Post("/", policyHandler.Create)
				r.Post("/{id}/assignments", policyHandler.Assign)
			})

			r.Get("/{id}", policyHandler.Get)
			r.Get("/{id}/assignments", policyHandler.ListAssignments)
		})

		r.Route("/attendance", func(r chi.Router) {
			r.Post("/events", attendanceHandler.RecordEvent)
			r.Get("/me", attendanceHandler.GetMyAttendance)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminOnly)
				r.Put("/{id}", attendanceHandler.Correct)
			})
		})

		r.Route("/balances", func(r chi.Router) {
			r.Get("/me", balanceHandler.GetMyBalances)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminOnly)
				r.Post("/grant-initial", balanceHandler.GrantInitial)
			})
		})

		r.Post("/leave/deduction-preview", balanceHandler.PreviewDeduction)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminOnly)
			r.Post("/batch/{job}", batchHandler.Run)
		})
	})
	return r
}
