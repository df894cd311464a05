// Package tibiadata looks up game characters through the TibiaData v4 API.
package tibiadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mcoot/soulpit/internal/model"
)

// DefaultBaseURL is the public TibiaData v4 endpoint
const DefaultBaseURL = "https://api.tibiadata.com/v4"

// Config holds configuration for the TibiaData client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: 10 * time.Second,
	}
}

// Client queries TibiaData for character details
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a new TibiaData client
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: logger,
	}
}

type characterResponse struct {
	Character struct {
		Character struct {
			Name     string `json:"name"`
			World    string `json:"world"`
			Level    int    `json:"level"`
			Vocation string `json:"vocation"`
		} `json:"character"`
	} `json:"character"`
}

// Lookup fetches the canonical details of a character by name
func (c *Client) Lookup(ctx context.Context, name string) (model.CharacterInfo, error) {
	endpoint := c.baseURL + "/character/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.CharacterInfo{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return model.CharacterInfo{}, fmt.Errorf("%w: %s", model.ErrLookupTimeout, name)
		}
		return model.CharacterInfo{}, fmt.Errorf("%w: %v", model.ErrLookupUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close tibiadata response body", slog.String("error", err.Error()))
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return model.CharacterInfo{}, fmt.Errorf("%w: %s", model.ErrCharacterNotFound, name)
	case resp.StatusCode != http.StatusOK:
		c.logger.Warn("tibiadata lookup failed",
			slog.String("character", name),
			slog.Int("status", resp.StatusCode),
		)
		return model.CharacterInfo{}, fmt.Errorf("%w: status %d", model.ErrLookupUnavailable, resp.StatusCode)
	}

	var body characterResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if isTimeout(err) {
			return model.CharacterInfo{}, fmt.Errorf("%w: %s", model.ErrLookupTimeout, name)
		}
		return model.CharacterInfo{}, fmt.Errorf("%w: decode response: %v", model.ErrLookupUnavailable, err)
	}

	// TibiaData answers unknown names with an empty character object
	ch := body.Character.Character
	if ch.Name == "" {
		return model.CharacterInfo{}, fmt.Errorf("%w: %s", model.ErrCharacterNotFound, name)
	}
	return model.CharacterInfo{
		Name:     ch.Name,
		World:    ch.World,
		Level:    ch.Level,
		Vocation: ch.Vocation,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
