package e2e_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/soulpit/internal/api"
	"github.com/mcoot/soulpit/internal/factory"
	"github.com/mcoot/soulpit/internal/testutil"
)

var (
	buildOnce   sync.Once
	binaryPath  string
	buildOutput []byte
	buildErr    error
)

// cliRunner runs the CLI binary with its own credentials file
type cliRunner struct {
	serverURL       string
	credentialsFile string
}

func buildCLI(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		projectRoot := findProjectRoot(t)
		binaryPath = filepath.Join(projectRoot, "bin", "soulpit-test")
		cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/soulpit")
		cmd.Dir = projectRoot
		buildOutput, buildErr = cmd.CombinedOutput()
	})
	require.NoError(t, buildErr, "failed to build CLI: %s", string(buildOutput))
	return binaryPath
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()
	buildCLI(t)

	return &cliRunner{
		serverURL:       serverURL,
		credentialsFile: filepath.Join(t.TempDir(), "credentials.json"),
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--credentials-file", r.credentialsFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(binaryPath, fullArgs...)
	// keep the developer's own credentials out of the test
	cmd.Env = append(os.Environ(), "SOULPIT_TOKEN=", "SOULPIT_SESSION=")
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// startTestServer runs the API on a free port, backed by the test factory
func startTestServer(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	app := factory.NewTestApp()
	logger := testutil.NopLogger()

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Resolver:    app.Resolver,
		AuthService: app.Auth,
		Characters:  app.Characters,
		Collections: app.Collections,
		Lists:       app.Lists,
		Ledger:      app.Ledger,
		Join:        app.Join,
		Catalog:     app.Catalog,
		HubManager:  app.HubManager,
	})

	serverCfg := api.DefaultServerConfig()
	serverCfg.Host = "127.0.0.1"
	serverCfg.Port = port
	serverCfg.ShutdownTimeout = 5 * time.Second
	server := api.NewServer(router, serverCfg, logger)
	server.RegisterOnShutdown(app.HubManager.Close)

	go func() {
		if err := server.Start(); err != nil {
			t.Logf("server error: %v", err)
		}
	}()
	t.Cleanup(func() {
		_ = server.Shutdown(context.Background())
		_ = app.Close()
	})

	serverURL := "http://127.0.0.1:" + strconv.Itoa(port)
	waitForServer(t, serverURL+"/api/v1/health")
	return serverURL
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type playerResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	IsAnonymous bool   `json:"is_anonymous"`
}

type anonymousResponse struct {
	Player       playerResponse `json:"player"`
	SessionToken string         `json:"session_token"`
}

type authResponse struct {
	Player playerResponse `json:"player"`
	Token  string         `json:"token"`
	Merged bool           `json:"merged"`
}

type membershipResponse struct {
	PlayerID      string `json:"player_id"`
	CharacterID   string `json:"character_id"`
	CharacterName string `json:"character_name"`
	IsOwner       bool   `json:"is_owner"`
}

type listResponse struct {
	ID        string               `json:"id"`
	ShareCode string               `json:"share_code"`
	Members   []membershipResponse `json:"members"`
}

type previewResponse struct {
	Name        string `json:"name"`
	OwnerName   string `json:"owner_name"`
	MemberCount int    `json:"member_count"`
}

type joinResponse struct {
	SessionToken string             `json:"session_token"`
	Membership   membershipResponse `json:"membership"`
	List         listResponse       `json:"list"`
}

type coreResponse struct {
	CreatureID string `json:"creature_id"`
	State      string `json:"state"`
	ObtainedBy *struct {
		Name string `json:"name"`
	} `json:"obtained_by"`
}

type summaryResponse struct {
	TotalTracked  int `json:"total_tracked"`
	ObtainedCount int `json:"obtained_count"`
	UnlockedCount int `json:"unlocked_count"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func decodeOutput[T any](t *testing.T, output string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(output), &v), "output: %s", output)
	return v
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	cli := newCLIRunner(t, startTestServer(t))

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	resp := decodeOutput[struct {
		Status string `json:"status"`
	}](t, output)
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_PlayerCommands(t *testing.T) {
	cli := newCLIRunner(t, startTestServer(t))

	output, err := cli.run("player", "anonymous", "--name", "Alice")
	require.NoError(t, err, "output: %s", output)
	anon := decodeOutput[anonymousResponse](t, output)
	assert.Equal(t, "Alice", anon.Player.Username)
	assert.True(t, anon.Player.IsAnonymous)
	assert.NotEmpty(t, anon.SessionToken)

	// Session token is read back from the credentials file
	output, err = cli.run("player", "me")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, anon.Player.ID, decodeOutput[playerResponse](t, output).ID)

	// Registering converts the anonymous player in place
	output, err = cli.run("player", "register", "--user", "alice", "--pass", "secret123")
	require.NoError(t, err, "output: %s", output)
	registered := decodeOutput[authResponse](t, output)
	assert.True(t, registered.Merged)
	assert.Equal(t, anon.Player.ID, registered.Player.ID)

	output, err = cli.run("player", "me")
	require.NoError(t, err, "output: %s", output)
	me := decodeOutput[playerResponse](t, output)
	assert.False(t, me.IsAnonymous)
	assert.Equal(t, anon.Player.ID, me.ID)
}

func TestCLI_ShareCodeFlow(t *testing.T) {
	serverURL := startTestServer(t)
	owner := newCLIRunner(t, serverURL)
	visitor := newCLIRunner(t, serverURL)

	_, err := owner.run("player", "anonymous", "--name", "Owner")
	require.NoError(t, err)

	output, err := owner.run("list", "create", "--name", "Soul Hunt", "--world", "Antica", "--character", "Rook Sample")
	require.NoError(t, err, "output: %s", output)
	list := decodeOutput[listResponse](t, output)
	require.Len(t, list.Members, 1)
	assert.True(t, list.Members[0].IsOwner)

	// The visitor has no credentials yet
	output, err = visitor.run("preview", list.ShareCode)
	require.NoError(t, err, "output: %s", output)
	preview := decodeOutput[previewResponse](t, output)
	assert.Equal(t, "Soul Hunt", preview.Name)
	assert.Equal(t, "Rook Sample", preview.OwnerName)

	output, err = visitor.run("join", list.ShareCode, "--name", "Visitor", "--character", "Knight Sample")
	require.NoError(t, err, "output: %s", output)
	joined := decodeOutput[joinResponse](t, output)
	assert.NotEmpty(t, joined.SessionToken)
	assert.Equal(t, "Knight Sample", joined.Membership.CharacterName)
	assert.Len(t, joined.List.Members, 2)

	// The saved session token now identifies the visitor
	output, err = visitor.run("list", "mine")
	require.NoError(t, err, "output: %s", output)
	mine := decodeOutput[struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}](t, output)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, list.ID, mine.Items[0].ID)

	// Track and obtain a soul core
	output, err = owner.run("core", "add", list.ID, "rat")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, "missing", decodeOutput[coreResponse](t, output).State)

	output, err = visitor.run("core", "obtain", list.ID, "rat", "--character-id", joined.Membership.CharacterID)
	require.NoError(t, err, "output: %s", output)
	core := decodeOutput[coreResponse](t, output)
	assert.Equal(t, "obtained", core.State)
	require.NotNil(t, core.ObtainedBy)
	assert.Equal(t, "Knight Sample", core.ObtainedBy.Name)

	output, err = owner.run("core", "unlock", list.ID, "rat")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, "unlocked", decodeOutput[coreResponse](t, output).State)

	output, err = owner.run("core", "summary", list.ID)
	require.NoError(t, err, "output: %s", output)
	summary := decodeOutput[summaryResponse](t, output)
	assert.Equal(t, 1, summary.TotalTracked)
	assert.Equal(t, 1, summary.UnlockedCount)

	// Rotating the code invalidates the old one
	output, err = owner.run("list", "rotate-code", list.ID)
	require.NoError(t, err, "output: %s", output)
	assert.NotEqual(t, list.ShareCode, decodeOutput[listResponse](t, output).ShareCode)

	output, err = visitor.run("preview", list.ShareCode)
	require.Error(t, err)
	assert.Contains(t, output, "INVALID_SHARE_CODE")

	output, err = visitor.run("list", "leave", list.ID)
	require.NoError(t, err, "output: %s", output)
	assert.Contains(t, decodeOutput[messageResponse](t, output).Message, "Left list")
}

func TestCLI_JoinErrors(t *testing.T) {
	serverURL := startTestServer(t)
	owner := newCLIRunner(t, serverURL)
	visitor := newCLIRunner(t, serverURL)

	_, err := owner.run("player", "anonymous")
	require.NoError(t, err)
	output, err := owner.run("list", "create", "--name", "Antica Only", "--world", "Antica", "--character", "Rook Sample")
	require.NoError(t, err, "output: %s", output)
	list := decodeOutput[listResponse](t, output)

	output, err = visitor.run("join", list.ShareCode, "--character", "Wanderer Sample")
	require.Error(t, err)
	assert.Contains(t, output, "WORLD_MISMATCH")

	output, err = visitor.run("join", "NOPE1234", "--character", "Druid Sample")
	require.Error(t, err)
	assert.Contains(t, output, "INVALID_SHARE_CODE")

	// both character flags at once is rejected before any request
	output, err = visitor.run("join", list.ShareCode, "--character", "Druid Sample", "--character-id", "c1")
	require.Error(t, err)
	assert.Contains(t, output, "character")
}
