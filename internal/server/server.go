package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"procura-backend/internal/assistant"
	"procura-backend/internal/catalog"
	"procura-backend/internal/config"
	"procura-backend/internal/db"
	"procura-backend/internal/logging"
	"procura-backend/internal/modules"
	"procura-backend/internal/store"
	"procura-backend/internal/types"
)

type Server struct {
	router   *chi.Mux
	cfg      config.Config
	engine   *assistant.Engine
	renderer *modules.Renderer
	store    *store.MemoryStore
	database *db.DB
	// optional durable copy of conversations
	archive *store.ArchiveStore
}

// Deps are the collaborators New wires into the router. Nil fields get
// in-memory defaults.
type Deps struct {
	Engine   *assistant.Engine
	Catalog  *catalog.Catalog
	Store    *store.MemoryStore
	Database *db.DB
	Archive  *store.ArchiveStore
}

// NewServer builds the engine and the optional database archive from cfg.
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	engine, cat, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	var database *db.DB
	var archive *store.ArchiveStore
	if cfg.DatabaseURL != "" {
		database, err = db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		logging.AppLogger.Info("database connection established")
		if err := database.RunMigrations(ctx, cfg.MigrationsDir); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		archive = store.NewArchiveStore(database)
	} else {
		logging.AppLogger.Warn("DB_URL not provided, conversations are kept in memory only")
	}

	return New(cfg, Deps{Engine: engine, Catalog: cat, Database: database, Archive: archive}), nil
}

// NewEngine loads the rule table, catalog and optional LLM assist named in
// cfg.
func NewEngine(cfg config.Config) (*assistant.Engine, *catalog.Catalog, error) {
	rules := assistant.DefaultRules
	if cfg.RulesFile != "" {
		var err error
		if rules, err = assistant.LoadRules(cfg.RulesFile); err != nil {
			return nil, nil, fmt.Errorf("failed to load intent rules: %w", err)
		}
	}
	cat, err := catalog.NewFileSource(cfg.CatalogFile).Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	opts := assistant.EngineOptions{
		Rules:         rules,
		Catalog:       cat,
		MaxMessages:   cfg.MaxMessages,
		MaxCustom:     cfg.MaxCustomActions,
		ThinkDelay:    cfg.ThinkDelay,
		ResearchDelay: cfg.ResearchDelay,
	}
	if cfg.IntentLLMEnabled {
		llm, err := assistant.LoadLLMClassifier(cfg.IntentPromptFile, openai.NewClient(cfg.OpenAIAPIKey), cfg.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load intent classifier: %w", err)
		}
		opts.Assist = llm
		logging.AppLogger.Info("LLM intent assist enabled", zap.String("model", cfg.Model))
	}
	return assistant.NewEngine(opts), cat, nil
}

func New(cfg config.Config, deps Deps) *Server {
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Engine == nil {
		deps.Engine = assistant.NewEngine(assistant.EngineOptions{
			Catalog:       deps.Catalog,
			MaxMessages:   cfg.MaxMessages,
			MaxCustom:     cfg.MaxCustomActions,
			ThinkDelay:    cfg.ThinkDelay,
			ResearchDelay: cfg.ResearchDelay,
		})
	}
	if deps.Store == nil {
		deps.Store = store.NewMemoryStore(cfg.FlowTTL)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:   r,
		cfg:      cfg,
		engine:   deps.Engine,
		renderer: modules.NewRenderer(deps.Catalog),
		store:    deps.Store,
		database: deps.Database,
		archive:  deps.Archive,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	// Conversation
	s.router.Post("/api/chat", s.handleChat)
	s.router.Get("/api/chat/ws", s.handleChatWS)
	s.router.Get("/api/chat/history", s.handleHistory)
	s.router.Post("/api/chat/reset", s.handleReset)
	s.router.Post("/api/classify", s.handleClassify)
	// Action preview panel
	s.router.Get("/api/actions", s.handleActions)
	s.router.Post("/api/actions/custom", s.handleDropAction)
	// Workspace
	s.router.Get("/api/modules/{type}", s.handleModule)
	s.router.Get("/api/views", s.handleViews)
	s.router.Get("/api/views/resolve", s.handleResolveView)
}

func (s *Server) Router() http.Handler { return s.router }

// Close releases the database connection, if any.
func (s *Server) Close() error {
	if s.database != nil {
		return s.database.Close()
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "archive": "disabled"}
	if s.database != nil {
		status["archive"] = "ok"
		if err := s.database.HealthCheck(r.Context()); err != nil {
			logging.ErrorLogger.Error("database health check failed", zap.Error(err))
			status["status"] = "degraded"
			status["archive"] = "unreachable"
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, types.ErrorResponse{Error: msg})
}

func newSessionID() string {
	return "s_" + uuid.NewString()
}

// getSessionID retrieves the session ID from cookie, then header, then query.
func getSessionID(r *http.Request) string {
	if cookie, err := GetSessionCookie(r); err == nil && cookie != "" {
		return cookie
	}
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	if sid := r.URL.Query().Get("sessionId"); sid != "" {
		return sid
	}
	return ""
}

// getOrCreateSessionID gets the existing session ID or creates one, setting
// the cookie and the X-Session-Id response header either way.
func getOrCreateSessionID(r *http.Request, w http.ResponseWriter) string {
	sid := getSessionID(r)
	if sid == "" {
		sid = newSessionID()
		logging.AppLogger.Debug("creating new session", zap.String("session_id", sid), zap.String("path", r.URL.Path))
		SetSessionCookie(w, sid)
	}
	w.Header().Set("X-Session-Id", sid)
	return sid
}
