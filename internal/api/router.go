package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/soulpit/internal/api/apierr"
	"github.com/mcoot/soulpit/internal/api/handler"
	"github.com/mcoot/soulpit/internal/api/middleware"
	"github.com/mcoot/soulpit/internal/api/sse"
	"github.com/mcoot/soulpit/internal/services/auth"
	"github.com/mcoot/soulpit/internal/services/catalog"
	"github.com/mcoot/soulpit/internal/services/character"
	"github.com/mcoot/soulpit/internal/services/collection"
	"github.com/mcoot/soulpit/internal/services/identity"
	"github.com/mcoot/soulpit/internal/services/join"
	"github.com/mcoot/soulpit/internal/services/ledger"
	"github.com/mcoot/soulpit/internal/services/list"
	shared "github.com/mcoot/soulpit/internal/middleware"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Resolver    *identity.Resolver
	AuthService *auth.Service
	Characters  *character.Service
	Collections *collection.Service
	Lists       *list.Controller
	Ledger      *ledger.Service
	Join        *join.Service
	Catalog     *catalog.Service
	HubManager  *sse.HubManager
	// RateLimiter guards the endpoints that create identities.
	// If nil, a limiter with default settings is used.
	RateLimiter *middleware.IPRateLimiter
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.Resolver, cfg.AuthService, cfg.Characters, cfg.Logger)
	characterHandler := handler.NewCharacterHandler(cfg.Characters, cfg.Logger)
	listHandler := handler.NewListHandler(cfg.Lists, cfg.HubManager, cfg.Logger)
	coreHandler := handler.NewCoreHandler(cfg.Ledger, cfg.Catalog, cfg.Logger)
	joinHandler := handler.NewJoinHandler(cfg.Lists, cfg.Join, cfg.Logger)
	collectionHandler := handler.NewCollectionHandler(cfg.Collections, cfg.Logger)

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = middleware.NewIPRateLimiter(middleware.DefaultRateLimitConfig())
	}

	// Create middleware
	authMiddleware := middleware.Auth(cfg.Resolver)
	rateLimitMiddleware := middleware.RateLimit(limiter)
	loggingMiddleware := shared.Logging(cfg.Logger)
	recoveryMiddleware := shared.Recovery(cfg.Logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(loggingMiddleware)
	api.Use(recoveryMiddleware)

	// Identity creation (no auth required, rate limited)
	public := api.NewRoute().Subrouter()
	public.Use(rateLimitMiddleware)
	public.HandleFunc("/players/anonymous", playerHandler.CreateAnonymous).Methods(http.MethodPost)
	public.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	public.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)
	public.HandleFunc("/join/{code}", joinHandler.Preview).Methods(http.MethodGet)
	public.HandleFunc("/join/{code}", joinHandler.Join).Methods(http.MethodPost)

	// Protected player routes
	players := api.PathPrefix("/players/me").Subrouter()
	players.Use(authMiddleware)
	players.HandleFunc("", playerHandler.GetMe).Methods(http.MethodGet)
	players.HandleFunc("/main-character", playerHandler.SetMainCharacter).Methods(http.MethodPut)
	players.HandleFunc("/suggestions", collectionHandler.Pending).Methods(http.MethodGet)

	// Character routes
	characters := api.PathPrefix("/characters").Subrouter()
	characters.Use(authMiddleware)
	characters.HandleFunc("", characterHandler.List).Methods(http.MethodGet)
	characters.HandleFunc("", characterHandler.Register).Methods(http.MethodPost)
	characters.HandleFunc("/{id}", characterHandler.Get).Methods(http.MethodGet)
	characters.HandleFunc("/{id}", characterHandler.Delete).Methods(http.MethodDelete)
	characters.HandleFunc("/{id}/sync", characterHandler.Sync).Methods(http.MethodPost)

	// Collection routes
	characters.HandleFunc("/{id}/soulcores", collectionHandler.Get).Methods(http.MethodGet)
	characters.HandleFunc("/{id}/soulcores", collectionHandler.Add).Methods(http.MethodPost)
	characters.HandleFunc("/{id}/soulcores/{creature_id}", collectionHandler.Remove).Methods(http.MethodDelete)
	characters.HandleFunc("/{id}/suggestions", collectionHandler.Suggestions).Methods(http.MethodGet)
	characters.HandleFunc("/{id}/suggestions/accept", collectionHandler.Accept).Methods(http.MethodPost)
	characters.HandleFunc("/{id}/suggestions/dismiss", collectionHandler.Dismiss).Methods(http.MethodPost)

	// List routes (all require auth)
	lists := api.PathPrefix("/lists").Subrouter()
	lists.Use(authMiddleware)
	lists.HandleFunc("", listHandler.Create).Methods(http.MethodPost)
	lists.HandleFunc("", listHandler.Mine).Methods(http.MethodGet)
	lists.HandleFunc("/{id}", listHandler.Get).Methods(http.MethodGet)
	lists.HandleFunc("/{id}/rotate-code", listHandler.RotateShareCode).Methods(http.MethodPost)
	lists.HandleFunc("/{id}/leave", listHandler.Leave).Methods(http.MethodPost)
	lists.HandleFunc("/{id}/members/{player_id}", listHandler.RemoveMember).Methods(http.MethodDelete)
	lists.HandleFunc("/{id}/events", listHandler.Events).Methods(http.MethodGet)

	// Soul core routes
	lists.HandleFunc("/{id}/cores", coreHandler.Add).Methods(http.MethodPost)
	lists.HandleFunc("/{id}/cores/{creature_id}/obtain", coreHandler.Obtain).Methods(http.MethodPost)
	lists.HandleFunc("/{id}/cores/{creature_id}/unlock", coreHandler.Unlock).Methods(http.MethodPost)
	lists.HandleFunc("/{id}/summary", coreHandler.Summary).Methods(http.MethodGet)

	// Catalog, highscores and health (no auth)
	api.HandleFunc("/creatures", coreHandler.Creatures).Methods(http.MethodGet)
	api.HandleFunc("/highscores", collectionHandler.Highscores).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
