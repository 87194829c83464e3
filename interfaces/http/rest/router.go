package rest

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"handswers-backend/application/services"
	"handswers-backend/domain/core/entities"
	"handswers-backend/interfaces/http/rest/handlers"
	"handswers-backend/interfaces/http/rest/middleware"
	"handswers-backend/pkg/auth"
	"handswers-backend/pkg/common"
	pkgerrors "handswers-backend/pkg/errors"
	"handswers-backend/pkg/observability"
	"handswers-backend/pkg/ratelimit"
)

// Services groups the application services behind the routes.
type Services struct {
	Rooms     *services.RoomService
	Questions *services.QuestionService
	Messages  *services.MessageService
	Admin     *services.AdminService
	Auth      *services.AuthService
}

// Router creates and configures the HTTP router
type Router struct {
	svc         Services
	tokens      middleware.TokenValidator
	cookies     *auth.Cookies
	limiter     ratelimit.Limiter
	collector   *observability.Collector
	tracer      *observability.Tracer
	errs        *pkgerrors.ErrorHandler
	frontendURL string
	ready       func(ctx context.Context) error
	logger      *zap.Logger
}

// NewRouter creates a new router instance. ready may be nil.
func NewRouter(
	svc Services,
	tokens middleware.TokenValidator,
	cookies *auth.Cookies,
	limiter ratelimit.Limiter,
	collector *observability.Collector,
	tracer *observability.Tracer,
	errs *pkgerrors.ErrorHandler,
	frontendURL string,
	ready func(ctx context.Context) error,
	logger *zap.Logger,
) *Router {
	return &Router{
		svc:         svc,
		tokens:      tokens,
		cookies:     cookies,
		limiter:     limiter,
		collector:   collector,
		tracer:      tracer,
		errs:        errs,
		frontendURL: frontendURL,
		ready:       ready,
		logger:      logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errs.Middleware)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.collector))
	router.Use(rt.tracer.Middleware)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{rt.frontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Set-Cookie"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Method(http.MethodGet, "/metrics", rt.collector.Handler())

	authenticate := middleware.Authenticate(rt.tokens, rt.errs, rt.logger)
	creator := middleware.RequireRole(entities.RoleCreator, rt.errs)
	limit := func(scope string) func(http.Handler) http.Handler {
		return middleware.RateLimit(rt.limiter, scope, rt.errs, rt.logger)
	}

	router.Route("/auth", func(r chi.Router) {
		h := handlers.NewAuthHandler(rt.svc.Auth, rt.cookies, rt.frontendURL, rt.errs, rt.logger)
		r.Use(limit("auth"))
		r.Get("/google", h.GoogleLogin)
		r.Get("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
	})

	router.Route("/room", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(rt.annotateUser)

		rooms := handlers.NewRoomHandler(rt.svc.Rooms, rt.errs, rt.logger)
		r.Get("/verify/{roomCode}", rooms.Verify)
		r.Group(func(r chi.Router) {
			r.Use(creator)
			r.Post("/create", rooms.Create)
			r.Get("/get/teacher/{teacherId}/{page}", rooms.ListForTeacher)
			r.Get("/get/{roomId}/{page}", rooms.Get)
			r.Put("/close/{roomId}", rooms.Close)
			r.Delete("/delete/{roomId}", rooms.Delete)
		})

		questions := handlers.NewQuestionHandler(rt.svc.Questions, rt.errs, rt.logger)
		r.Post("/question/create", questions.Create)
		r.Put("/question/request-help", questions.RequestHelp)
		r.Put("/question/close", questions.Close)

		messages := handlers.NewMessageHandler(rt.svc.Messages, rt.errs, rt.logger)
		r.Get("/message/history/{page}", messages.History)
		r.With(limit("message")).Post("/message/create", messages.Send)
	})

	router.Route("/user", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireRole(entities.RoleAdmin, rt.errs))

		h := handlers.NewAdminHandler(rt.svc.Admin, rt.errs, rt.logger)
		r.Get("/get/schools", h.ListSchools)
		r.Get("/get/users/{schoolId}", h.ListUsers)
		r.Post("/create/school", h.CreateSchool)
		r.Put("/edit/school/{id}", h.EditSchool)
		r.Delete("/delete/school/{id}", h.DeleteSchool)
		r.Post("/create/users", h.CreateUsers)
		r.Put("/edit/{id}", h.EditUser)
		r.Delete("/delete/{id}", h.DeleteUser)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		common.RespondError(w, http.StatusNotFound, "Route not found.")
	})

	return router
}

// annotateUser tags the request trace with the caller.
func (rt *Router) annotateUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, err := auth.GetUserFromContext(r.Context()); err == nil {
			rt.tracer.AddAnnotation(r.Context(), "userId", user.UserID)
		}
		next.ServeHTTP(w, r)
	})
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	common.RespondJSON(w, http.StatusOK, "Health check", map[string]string{"status": "healthy"})
}

// readinessCheck reports whether the backing store answers.
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	if rt.ready != nil {
		if err := rt.ready(r.Context()); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			common.RespondError(w, http.StatusServiceUnavailable, "Not ready.")
			return
		}
	}
	common.RespondJSON(w, http.StatusOK, "Ready", map[string]string{"status": "ready"})
}
