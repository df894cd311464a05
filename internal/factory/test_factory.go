package factory

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/soulpit/internal/dependencies/mocks"
	"github.com/mcoot/soulpit/internal/gamedata/static"
	"github.com/mcoot/soulpit/internal/services/auth"
	"github.com/mcoot/soulpit/internal/services/character"
	"github.com/mcoot/soulpit/internal/storage/memory"
	"github.com/mcoot/soulpit/internal/testutil"
)

// TestJWTSecret signs bearer tokens issued by a TestApp
const TestJWTSecret = "test-secret"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock    *mocks.MockClock
	MockRandom   *mocks.MockRandom
	StaticLookup *static.Lookup
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Characters are looked up in static.Sample and the bundled catalog is loaded.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	lookup := static.Sample()

	authCfg := auth.DefaultConfig()
	authCfg.JWTSecret = TestJWTSecret
	authCfg.BcryptCost = bcrypt.MinCost

	charCfg := character.DefaultConfig()
	charCfg.LookupTimeout = time.Second

	app := newWithDependencies(store, mockClock, mockRandom, lookup, authCfg, charCfg, testutil.NopLogger())
	if err := app.Catalog.LoadDefault(context.Background()); err != nil {
		panic(err)
	}

	return &TestApp{
		App:          app,
		MockClock:    mockClock,
		MockRandom:   mockRandom,
		StaticLookup: lookup,
	}
}
