package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mcoot/soulpit/internal/api/sse"
	"github.com/mcoot/soulpit/internal/dependencies/clock"
	"github.com/mcoot/soulpit/internal/dependencies/random"
	"github.com/mcoot/soulpit/internal/gamedata/static"
	"github.com/mcoot/soulpit/internal/gamedata/tibiadata"
	"github.com/mcoot/soulpit/internal/services/auth"
	"github.com/mcoot/soulpit/internal/services/catalog"
	"github.com/mcoot/soulpit/internal/services/character"
	"github.com/mcoot/soulpit/internal/services/collection"
	"github.com/mcoot/soulpit/internal/services/identity"
	"github.com/mcoot/soulpit/internal/services/join"
	"github.com/mcoot/soulpit/internal/services/ledger"
	"github.com/mcoot/soulpit/internal/services/list"
	"github.com/mcoot/soulpit/internal/storage"
	"github.com/mcoot/soulpit/internal/storage/memory"
	redisstorage "github.com/mcoot/soulpit/internal/storage/redis"
	"github.com/mcoot/soulpit/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQLite = "sqlite"
)

// Character lookup constants
const (
	LookupTibiaData = "tibiadata"
	LookupStatic    = "static"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	Lookup character.Lookup

	// Services
	Catalog     *catalog.Service
	Tokens      *auth.Tokens
	Resolver    *identity.Resolver
	Auth        *auth.Service
	Characters  *character.Service
	Collections *collection.Service
	Lists       *list.Controller
	Ledger      *ledger.Service
	Join        *join.Service
	HubManager  *sse.HubManager

	closer io.Closer
}

// Config holds configuration for the application factory.
// Every field can be set from the environment; see LoadConfig.
type Config struct {
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	StorageType string `env:"STORAGE" envDefault:"memory"`
	// Redis holds connection settings used when StorageType is "redis"
	Redis redisstorage.Config `envPrefix:"REDIS_"`
	// SQLitePath is the database file used when StorageType is "sqlite"
	SQLitePath string `env:"SQLITE_PATH" envDefault:"soulpit.db"`

	// Lookup selects the character lookup ("tibiadata" or "static")
	Lookup        string        `env:"LOOKUP" envDefault:"tibiadata"`
	TibiaDataURL  string        `env:"TIBIADATA_URL" envDefault:"https://api.tibiadata.com/v4"`
	LookupTimeout time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"5s"`

	// JWTSecret signs bearer tokens. Registration and login are disabled without it.
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	// CatalogPath is a YAML creature catalog. The bundled catalog is used when empty.
	CatalogPath string `env:"CATALOG_PATH"`

	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger `env:"-"`
}

// LoadConfig reads the factory configuration from SOULPIT_* environment variables
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "SOULPIT_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// New creates a new application with all dependencies wired and the
// creature catalog loaded
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, closer, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}

	var lookup character.Lookup
	switch cfg.Lookup {
	case "", LookupTibiaData:
		tdCfg := tibiadata.DefaultConfig()
		if cfg.TibiaDataURL != "" {
			tdCfg.BaseURL = cfg.TibiaDataURL
		}
		lookup = tibiadata.New(tdCfg, logger)
	case LookupStatic:
		lookup = static.Sample()
	default:
		closeQuietly(closer)
		return nil, fmt.Errorf("invalid Lookup %q: must be 'tibiadata' or 'static'", cfg.Lookup)
	}

	authCfg := auth.DefaultConfig()
	authCfg.JWTSecret = cfg.JWTSecret
	if cfg.TokenTTL > 0 {
		authCfg.TokenTTL = cfg.TokenTTL
	}
	charCfg := character.DefaultConfig()
	if cfg.LookupTimeout > 0 {
		charCfg.LookupTimeout = cfg.LookupTimeout
	}

	app := newWithDependencies(store, clock.New(), random.New(), lookup, authCfg, charCfg, logger)
	app.closer = closer

	if cfg.CatalogPath != "" {
		err = app.Catalog.LoadFromFile(ctx, cfg.CatalogPath)
	} else {
		err = app.Catalog.LoadDefault(ctx)
	}
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("load creature catalog: %w", err)
	}
	logger.Info("creature catalog loaded", slog.Int("creatures", app.Catalog.Count()))

	return app, nil
}

func openStorage(cfg Config) (storage.Storage, io.Closer, error) {
	switch cfg.StorageType {
	case "", StorageTypeMemory:
		return memory.New(), nil, nil
	case StorageTypeRedis:
		redisCfg := cfg.Redis
		if redisCfg.URL == "" {
			redisCfg = redisstorage.DefaultConfig()
		}
		store, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case StorageTypeSQLite:
		if cfg.SQLitePath == "" {
			return nil, nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'sqlite'")
	}
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	lookup character.Lookup,
	authCfg auth.Config,
	charCfg character.Config,
	logger *slog.Logger,
) *App {
	hubManager := sse.NewHubManager(logger)

	catalogService := catalog.New(store)
	tokens := auth.NewTokens(authCfg, clk, rnd)
	resolver := identity.New(store, tokens, clk, rnd, logger)
	authService := auth.New(store, resolver, tokens, clk, rnd, authCfg, logger)
	characterService := character.New(store, lookup, clk, rnd, charCfg, logger)
	collectionService := collection.New(store, catalogService, clk, logger)
	listController := list.NewController(store, characterService, clk, rnd, hubManager, logger)
	ledgerService := ledger.New(store, catalogService, clk, rnd, hubManager, collectionService, logger)
	joinService := join.New(resolver, listController, characterService, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Lookup:      lookup,
		Catalog:     catalogService,
		Tokens:      tokens,
		Resolver:    resolver,
		Auth:        authService,
		Characters:  characterService,
		Collections: collectionService,
		Lists:       listController,
		Ledger:      ledgerService,
		Join:        joinService,
		HubManager:  hubManager,
	}
}

// Close stops the SSE hubs and releases the storage connection
func (a *App) Close() error {
	a.HubManager.Close()
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
