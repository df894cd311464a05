package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/soulpit/internal/api"
	"github.com/mcoot/soulpit/internal/api/apierr"
	"github.com/mcoot/soulpit/internal/api/middleware"
	"github.com/mcoot/soulpit/internal/api/response"
	"github.com/mcoot/soulpit/internal/factory"
	"github.com/mcoot/soulpit/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

// identity is what a request presents: a bearer token, a session token, or neither
type identity struct {
	bearer  string
	session string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithLimits(t, middleware.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000})
}

func newTestServerWithLimits(t *testing.T, limits middleware.RateLimitConfig) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		Resolver:    app.Resolver,
		AuthService: app.Auth,
		Characters:  app.Characters,
		Collections: app.Collections,
		Lists:       app.Lists,
		Ledger:      app.Ledger,
		Join:        app.Join,
		Catalog:     app.Catalog,
		HubManager:  app.HubManager,
		RateLimiter: middleware.NewIPRateLimiter(limits),
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, id identity) *httptest.ResponseRecorder {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if id.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+id.bearer)
	}
	if id.session != "" {
		req.Header.Set(middleware.SessionTokenHeader, id.session)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apierr.ErrorResponse](t, rr).Error.Code
}

func createAnonymous(t *testing.T, ts *testServer, username string) (response.Player, identity) {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/players/anonymous", map[string]string{"username": username}, identity{})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decode[response.AnonymousResponse](t, rr)
	return resp.Player, identity{session: resp.SessionToken}
}

func createList(t *testing.T, ts *testServer, id identity, world, characterName string) response.List {
	t.Helper()
	body := map[string]string{
		"name":           "Soul Hunt",
		"world":          world,
		"character_name": characterName,
	}
	rr := ts.request(http.MethodPost, "/api/v1/lists", body, id)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.List](t, rr)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, identity{})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestCreateAnonymousPlayer(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players/anonymous", map[string]string{"username": "Alice"}, identity{})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	resp := decode[response.AnonymousResponse](t, rr)
	assert.Equal(t, "Alice", resp.Player.Username)
	assert.True(t, resp.Player.IsAnonymous)
	assert.NotEmpty(t, resp.SessionToken)
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)
	player, id := createAnonymous(t, ts, "Bob")

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, id)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, player.ID, decode[response.Player](t, rr).ID)
}

func TestUnauthorizedWithoutIdentity(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, identity{})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, identity{session: "unknown"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, identity{bearer: "not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeUnauthorized, errorCode(t, rr))
}

func TestRegisterMergesSessionAndLogin(t *testing.T) {
	ts := newTestServer(t)
	anon, id := createAnonymous(t, ts, "Carol")

	body := map[string]string{"username": "carol", "password": "secret123"}
	rr := ts.request(http.MethodPost, "/api/v1/players/register", body, id)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	registered := decode[response.AuthResponse](t, rr)
	assert.True(t, registered.Merged)
	assert.Equal(t, anon.ID, registered.Player.ID)
	assert.False(t, registered.Player.IsAnonymous)
	assert.NotEmpty(t, registered.Token)

	// the session token stopped working, the bearer token works
	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, id)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, identity{bearer: registered.Token})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/players/login", map[string]string{"username": "CAROL", "password": "secret123"}, identity{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, anon.ID, decode[response.AuthResponse](t, rr).Player.ID)

	rr = ts.request(http.MethodPost, "/api/v1/players/login", map[string]string{"username": "carol", "password": "wrong-pass"}, identity{})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, errorCode(t, rr))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]string{"username": "dave", "password": "secret123"}

	rr := ts.request(http.MethodPost, "/api/v1/players/register", body, identity{})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/players/register", body, identity{})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeIdentityConflict, errorCode(t, rr))
}

func TestRegisterCharacter(t *testing.T) {
	ts := newTestServer(t)
	_, id := createAnonymous(t, ts, "Erin")

	rr := ts.request(http.MethodPost, "/api/v1/characters", map[string]string{"name": "Rook Sample"}, id)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	ch := decode[response.Character](t, rr)
	assert.Equal(t, "Rook Sample", ch.Name)
	assert.Equal(t, "Antica", ch.World)
	assert.Equal(t, 8, ch.Level)

	rr = ts.request(http.MethodPost, "/api/v1/characters", map[string]string{"name": "Nobody Known"}, id)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeCharacterNotFound, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/characters", map[string]string{"name": "x"}, id)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeValidation, errorCode(t, rr))

	rr = ts.request(http.MethodGet, "/api/v1/characters", nil, id)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[response.Items[response.Character]](t, rr).Items, 1)

	rr = ts.request(http.MethodPut, "/api/v1/players/me/main-character", map[string]string{"character_id": ch.ID}, id)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, ch.ID, decode[response.Player](t, rr).MainCharacterID)
}

func TestDeleteCharacterInUse(t *testing.T) {
	ts := newTestServer(t)
	_, id := createAnonymous(t, ts, "Frank")
	l := createList(t, ts, id, "", "Rook Sample")

	rr := ts.request(http.MethodDelete, "/api/v1/characters/"+l.Members[0].CharacterID, nil, id)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeCharacterInUse, errorCode(t, rr))
}

func TestCreateListRejectsBothCharacterFields(t *testing.T) {
	ts := newTestServer(t)
	_, id := createAnonymous(t, ts, "Gina")

	body := map[string]string{"name": "Hunt", "character_id": "c1", "character_name": "Rook Sample"}
	rr := ts.request(http.MethodPost, "/api/v1/lists", body, id)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/lists", map[string]string{"name": "Hunt"}, id)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeValidation, errorCode(t, rr))
}

func TestShareCodeJoinFlow(t *testing.T) {
	ts := newTestServer(t)
	_, ownerID := createAnonymous(t, ts, "Owner")
	l := createList(t, ts, ownerID, "Antica", "Rook Sample")
	require.Len(t, l.Members, 1)
	assert.True(t, l.Members[0].IsOwner)

	// Preview needs no identity
	rr := ts.request(http.MethodGet, "/api/v1/join/"+l.ShareCode, nil, identity{})
	require.Equal(t, http.StatusOK, rr.Code)
	preview := decode[response.Preview](t, rr)
	assert.Equal(t, "Rook Sample", preview.OwnerName)
	assert.Equal(t, 1, preview.MemberCount)
	assert.Equal(t, 5, preview.Capacity)

	// An anonymous visitor joins with a new character
	body := map[string]string{"display_name": "Visitor", "character_name": "Knight Sample"}
	rr = ts.request(http.MethodPost, "/api/v1/join/"+l.ShareCode, body, identity{})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	joined := decode[response.JoinResponse](t, rr)
	require.NotEmpty(t, joined.SessionToken)
	assert.Equal(t, "Visitor", joined.Player.Username)
	assert.False(t, joined.Membership.IsOwner)
	assert.Len(t, joined.List.Members, 2)
	visitor := identity{session: joined.SessionToken}

	// Joining twice is rejected and creates no new player
	rr = ts.request(http.MethodPost, "/api/v1/join/"+l.ShareCode, body, visitor)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeAlreadyMember, errorCode(t, rr))

	// The visitor now sees the list
	rr = ts.request(http.MethodGet, "/api/v1/lists", nil, visitor)
	require.Equal(t, http.StatusOK, rr.Code)
	items := decode[response.Items[response.ListItem]](t, rr).Items
	require.Len(t, items, 1)
	assert.False(t, items[0].IsOwner)

	// A character from another world is rejected
	body = map[string]string{"character_name": "Wanderer Sample"}
	rr = ts.request(http.MethodPost, "/api/v1/join/"+l.ShareCode, body, identity{})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeWorldMismatch, errorCode(t, rr))

	// Unknown codes
	rr = ts.request(http.MethodPost, "/api/v1/join/ZZZZZZZZ", map[string]string{"character_name": "Druid Sample"}, identity{})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeInvalidShareCode, errorCode(t, rr))
}

func TestJoinExistingCharacterRequiresIdentity(t *testing.T) {
	ts := newTestServer(t)
	_, ownerID := createAnonymous(t, ts, "Owner")
	l := createList(t, ts, ownerID, "", "Rook Sample")

	rr := ts.request(http.MethodPost, "/api/v1/join/"+l.ShareCode, map[string]string{"character_id": "some-id"}, identity{})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestListAccessRequiresMembership(t *testing.T) {
	ts := newTestServer(t)
	_, ownerID := createAnonymous(t, ts, "Owner")
	l := createList(t, ts, ownerID, "", "Rook Sample")
	_, strangerID := createAnonymous(t, ts, "Stranger")

	for _, path := range []string{"/api/v1/lists/" + l.ID, "/api/v1/lists/" + l.ID + "/summary", "/api/v1/lists/" + l.ID + "/events"} {
		rr := ts.request(http.MethodGet, path, nil, strangerID)
		assert.Equal(t, http.StatusForbidden, rr.Code, path)
	}

	rr := ts.request(http.MethodGet, "/api/v1/lists/missing", nil, ownerID)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSoulCoreFlow(t *testing.T) {
	ts := newTestServer(t)
	_, id := createAnonymous(t, ts, "Owner")
	l := createList(t, ts, id, "Antica", "Rook Sample")
	rook := l.Members[0].CharacterID
	base := "/api/v1/lists/" + l.ID

	rr := ts.request(http.MethodPost, base+"/cores", map[string]string{"creature_id": "rat"}, id)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "missing", decode[response.SoulCore](t, rr).State)

	rr = ts.request(http.MethodPost, base+"/cores", map[string]string{"creature_id": "rat"}, id)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeDuplicateCore, errorCode(t, rr))

	rr = ts.request(http.MethodPost, base+"/cores", map[string]string{"creature_id": "not-a-creature"}, id)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, base+"/cores/rat/unlock", nil, id)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeInvalidTransition, errorCode(t, rr))

	rr = ts.request(http.MethodPost, base+"/cores/rat/obtain", map[string]string{"character_id": rook}, id)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	core := decode[response.SoulCore](t, rr)
	assert.Equal(t, "obtained", core.State)
	require.NotNil(t, core.ObtainedBy)
	assert.Equal(t, "Rook Sample", core.ObtainedBy.Name)

	rr = ts.request(http.MethodPost, base+"/cores/rat/obtain", map[string]string{"character_id": rook}, id)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeInvalidTransition, errorCode(t, rr))

	rr = ts.request(http.MethodPost, base+"/cores/rat/unlock", nil, id)
	require.Equal(t, http.StatusOK, rr.Code)
	core = decode[response.SoulCore](t, rr)
	assert.Equal(t, "unlocked", core.State)
	assert.Equal(t, "Rook Sample", core.ObtainedBy.Name)

	rr = ts.request(http.MethodGet, base+"/summary", nil, id)
	require.Equal(t, http.StatusOK, rr.Code)
	summary := decode[response.Summary](t, rr)
	assert.Equal(t, 1, summary.TotalTracked)
	assert.Equal(t, 1, summary.ObtainedCount)
	assert.Equal(t, 1, summary.UnlockedCount)
}

func TestRotateShareCodeAndLeave(t *testing.T) {
	ts := newTestServer(t)
	_, ownerID := createAnonymous(t, ts, "Owner")
	l := createList(t, ts, ownerID, "", "Rook Sample")

	rr := ts.request(http.MethodPost, "/api/v1/join/"+l.ShareCode, map[string]string{"character_name": "Knight Sample"}, identity{})
	require.Equal(t, http.StatusCreated, rr.Code)
	member := decode[response.JoinResponse](t, rr)
	memberID := identity{session: member.SessionToken}

	rr = ts.request(http.MethodPost, "/api/v1/lists/"+l.ID+"/rotate-code", nil, memberID)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/lists/"+l.ID+"/rotate-code", nil, ownerID)
	require.Equal(t, http.StatusOK, rr.Code)
	rotated := decode[response.List](t, rr)
	assert.NotEqual(t, l.ShareCode, rotated.ShareCode)

	rr = ts.request(http.MethodGet, "/api/v1/join/"+l.ShareCode, nil, identity{})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/lists/"+l.ID+"/leave", nil, ownerID)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeOwnerCannotLeave, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/lists/"+l.ID+"/leave", nil, memberID)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/lists/"+l.ID, nil, memberID)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUnlockSuggestsToMembersAndFeedsHighscores(t *testing.T) {
	ts := newTestServer(t)
	_, ownerID := createAnonymous(t, ts, "Owner")
	l := createList(t, ts, ownerID, "Antica", "Rook Sample")
	rook := l.Members[0].CharacterID

	rr := ts.request(http.MethodPost, "/api/v1/join/"+l.ShareCode, map[string]string{"character_name": "Knight Sample"}, identity{})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	joined := decode[response.JoinResponse](t, rr)
	memberID := identity{session: joined.SessionToken}
	knight := joined.Membership.CharacterID

	base := "/api/v1/lists/" + l.ID
	rr = ts.request(http.MethodPost, base+"/cores/troll/obtain", map[string]string{"character_id": rook}, ownerID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.request(http.MethodPost, base+"/cores/troll/unlock", nil, ownerID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// both members are offered the creature
	rr = ts.request(http.MethodGet, "/api/v1/players/me/suggestions", nil, memberID)
	require.Equal(t, http.StatusOK, rr.Code)
	pending := decode[response.Items[response.Suggestions]](t, rr).Items
	require.Len(t, pending, 1)
	assert.Equal(t, knight, pending[0].Character.ID)
	assert.Equal(t, []string{"troll"}, pending[0].Creatures)

	// suggestions are private to the owner of the character
	rr = ts.request(http.MethodGet, "/api/v1/characters/"+knight+"/suggestions", nil, ownerID)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = ts.request(http.MethodGet, "/api/v1/characters/"+knight+"/soulcores", nil, ownerID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[response.SoulCoreCollection](t, rr).Suggested)

	rr = ts.request(http.MethodPost, "/api/v1/characters/"+knight+"/suggestions/accept", map[string]string{"creature_id": "troll"}, memberID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"troll"}, decode[response.SoulCoreCollection](t, rr).Unlocked)

	rr = ts.request(http.MethodPost, "/api/v1/characters/"+rook+"/suggestions/dismiss", map[string]string{"creature_id": "troll"}, ownerID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.request(http.MethodPost, "/api/v1/characters/"+rook+"/suggestions/dismiss", map[string]string{"creature_id": "troll"}, ownerID)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeNoSuggestion, errorCode(t, rr))

	// highscores need no identity
	rr = ts.request(http.MethodGet, "/api/v1/highscores", nil, identity{})
	require.Equal(t, http.StatusOK, rr.Code)
	scores := decode[response.Highscores](t, rr)
	require.Len(t, scores.Characters, 1)
	assert.Equal(t, "Knight Sample", scores.Characters[0].Name)
	assert.Equal(t, 1, scores.Characters[0].CoreCount)
	assert.Equal(t, response.Pagination{CurrentPage: 1, TotalPages: 1, TotalRecords: 1, PageSize: 20}, scores.Pagination)

	rr = ts.request(http.MethodGet, "/api/v1/highscores?page=51", nil, identity{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = ts.request(http.MethodGet, "/api/v1/highscores?page=abc", nil, identity{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCollectionEditsRequireOwner(t *testing.T) {
	ts := newTestServer(t)
	_, ownerID := createAnonymous(t, ts, "Owner")
	_, otherID := createAnonymous(t, ts, "Other")

	rr := ts.request(http.MethodPost, "/api/v1/characters", map[string]string{"name": "Druid Sample"}, ownerID)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	druid := decode[response.Character](t, rr).ID
	path := "/api/v1/characters/" + druid + "/soulcores"

	rr = ts.request(http.MethodPost, path, map[string]string{"creature_id": "orc"}, otherID)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodPost, path, map[string]string{}, ownerID)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, path, map[string]string{"creature_id": "orc"}, ownerID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"orc"}, decode[response.SoulCoreCollection](t, rr).Unlocked)

	rr = ts.request(http.MethodDelete, path+"/orc", nil, otherID)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = ts.request(http.MethodDelete, path+"/orc", nil, ownerID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[response.SoulCoreCollection](t, rr).Unlocked)
}

func TestRegisteringAnotherPlayersCharacterIsForbidden(t *testing.T) {
	ts := newTestServer(t)
	_, ownerID := createAnonymous(t, ts, "Owner")
	_, otherID := createAnonymous(t, ts, "Other")

	rr := ts.request(http.MethodPost, "/api/v1/characters", map[string]string{"name": "Paladin Sample"}, ownerID)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = ts.request(http.MethodPost, "/api/v1/characters", map[string]string{"name": "Paladin Sample"}, otherID)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeCharacterOwned, errorCode(t, rr))
}

func TestCreaturesCatalog(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/creatures", nil, identity{})
	require.Equal(t, http.StatusOK, rr.Code)
	creatures := decode[response.Items[response.Creature]](t, rr).Items
	require.NotEmpty(t, creatures)
	assert.Equal(t, "rat", creatures[0].ID)
}

func TestIdentityEndpointsAreRateLimited(t *testing.T) {
	ts := newTestServerWithLimits(t, middleware.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})

	for n := 0; n < 2; n++ {
		rr := ts.request(http.MethodPost, "/api/v1/players/anonymous", nil, identity{})
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	rr := ts.request(http.MethodPost, "/api/v1/players/anonymous", nil, identity{})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, apierr.CodeRateLimited, errorCode(t, rr))

	// authenticated routes are not limited
	rr = ts.request(http.MethodGet, "/api/v1/health", nil, identity{})
	assert.Equal(t, http.StatusOK, rr.Code)
}
