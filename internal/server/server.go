package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/config"
	"github.com/dukerupert/chorewheel/internal/handler"
	"github.com/dukerupert/chorewheel/internal/middleware"
	"github.com/dukerupert/chorewheel/internal/observability"
	"github.com/dukerupert/chorewheel/internal/push"
	"github.com/dukerupert/chorewheel/internal/store"
	ws "github.com/dukerupert/chorewheel/internal/websocket"
)

// Sign-in and sign-up attempts allowed per client IP per window.
const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	issuer         *auth.Issuer
	authH          *handler.AuthHandler
	householdH     *handler.HouseholdHandler
	choreH         *handler.ChoreHandler
	expenseH       *handler.ExpenseHandler
	nudgeH         *handler.NudgeHandler
	pushH          *handler.PushHandler
	householdStore *store.HouseholdStore
	pushStore      *store.PushStore
	rateLimiter    *middleware.RateLimiter
	pushScheduler  *push.Scheduler
	logger         *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	choreStore := store.NewChoreStore(db)
	fairnessStore := store.NewFairnessStore(db)
	expenseStore := store.NewExpenseStore(db)
	nudgeStore := store.NewNudgeStore(db)
	pushSt := store.NewPushStore(db)

	pushLogger := logger.With("component", "push")

	// Push notification service + scheduler
	var pushSvc *push.Service
	var pushSched *push.Scheduler
	var notifier handler.NudgeNotifier
	if cfg.PushEnabled() {
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber)
		pushSched = push.NewScheduler(pushSvc, pushSt, householdStore, choreStore, cfg.ReminderInterval, pushLogger)
		notifier = push.NewNotifier(pushSvc, pushSt, pushLogger)
	}

	return &Server{
		db:             db,
		hub:            hub,
		issuer:         issuer,
		authH:          handler.NewAuthHandler(userStore, issuer, logger.With("component", "auth")),
		householdH:     handler.NewHouseholdHandler(householdStore, hub, logger.With("component", "household")),
		choreH:         handler.NewChoreHandler(choreStore, fairnessStore, householdStore, hub, logger.With("component", "chore")),
		expenseH:       handler.NewExpenseHandler(expenseStore, householdStore, hub, logger.With("component", "expense")),
		nudgeH:         handler.NewNudgeHandler(nudgeStore, choreStore, householdStore, notifier, hub, logger.With("component", "nudge")),
		pushH:          handler.NewPushHandler(pushSt, householdStore, pushSvc, logger.With("component", "push_handler")),
		householdStore: householdStore,
		pushStore:      pushSt,
		rateLimiter:    middleware.NewRateLimiter(),
		pushScheduler:  pushSched,
		logger:         logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// PushScheduler returns the reminder scheduler, nil when push is not configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes (no auth required)
	mux.HandleFunc("POST /api/auth/signup", s.rateLimitedHandler(s.authH.SignUp))
	mux.HandleFunc("POST /api/auth/signin", s.rateLimitedHandler(s.authH.SignIn))
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", observability.Handler())

	// Protected routes are wrapped one by one so the request keeps its
	// matched pattern for the request metrics.
	s.registerProtectedRoutes(mux, middleware.RequireAuth(s.issuer))

	// Apply request logging middleware
	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, authRateLimit, authRateWindow)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(outer *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux := protectedMux{outer, protect}

	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Household routes
	mux.HandleFunc("GET /api/households", s.householdH.List)
	mux.HandleFunc("POST /api/households", s.householdH.Create)
	mux.HandleFunc("GET /api/households/{id}", s.householdH.Get)
	mux.HandleFunc("GET /api/households/{id}/members", s.householdH.Members)
	mux.HandleFunc("POST /api/households/join", s.householdH.Join)
	mux.HandleFunc("DELETE /api/households/{id}/members/me", s.householdH.Leave)

	// Chore routes
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)

	// Assignment routes
	mux.HandleFunc("GET /api/assignments", s.choreH.ListAssignments)
	mux.HandleFunc("POST /api/assignments", s.choreH.InsertAssignments)
	mux.HandleFunc("POST /api/assignments/log", s.choreH.LogActivity)
	mux.HandleFunc("PATCH /api/assignments/{id}", s.choreH.CompleteAssignment)

	// Procedures
	mux.HandleFunc("POST /api/rpc/next_assignee", s.choreH.NextAssignee)
	mux.HandleFunc("POST /api/rpc/increment_fairness", s.choreH.IncrementFairness)
	mux.HandleFunc("POST /api/rpc/verify_invite_code", s.householdH.VerifyInviteCode)

	// Expense routes
	mux.HandleFunc("GET /api/expenses", s.expenseH.List)
	mux.HandleFunc("POST /api/expenses", s.expenseH.Create)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.expenseH.Delete)
	mux.HandleFunc("POST /api/expenses/splits/{id}/settle", s.expenseH.SettleSplit)

	// Nudge routes
	mux.HandleFunc("GET /api/nudges", s.nudgeH.List)
	mux.HandleFunc("POST /api/nudges", s.nudgeH.Create)
	mux.HandleFunc("POST /api/nudges/{id}/read", s.nudgeH.MarkRead)

	// Push notification routes
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.householdStore, s.logger.With("component", "websocket")))
}

type protectedMux struct {
	mux     *http.ServeMux
	protect func(http.Handler) http.Handler
}

func (m protectedMux) HandleFunc(pattern string, h http.HandlerFunc) {
	m.mux.Handle(pattern, m.protect(h))
}
