package tibiadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/testutil"
)

type ClientSuite struct {
	suite.Suite
	server  *httptest.Server
	handler http.HandlerFunc
	client  *Client
	ctx     context.Context
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handler(w, r)
	}))
	s.client = New(Config{BaseURL: s.server.URL, Timeout: time.Second}, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) TestLookupParsesCharacter() {
	var gotPath string
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"character":{"character":{"name":"Rook Sample","world":"Antica","level":8,"vocation":"None","sex":"male"}},"information":{"api":{"version":4}}}`))
	}

	info, err := s.client.Lookup(s.ctx, "rook sample")
	s.Require().NoError(err)
	s.Equal("/character/rook%20sample", gotPath)
	s.Equal(model.CharacterInfo{Name: "Rook Sample", World: "Antica", Level: 8, Vocation: "None"}, info)
}

func (s *ClientSuite) TestLookupNotFoundStatus() {
	_, err := s.client.Lookup(s.ctx, "Nobody Here")
	s.ErrorIs(err, model.ErrCharacterNotFound)
}

func (s *ClientSuite) TestLookupEmptyCharacterIsNotFound() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"character":{"character":{"name":"","world":""}}}`))
	}

	_, err := s.client.Lookup(s.ctx, "Nobody Here")
	s.ErrorIs(err, model.ErrCharacterNotFound)
}

func (s *ClientSuite) TestLookupServerError() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}

	_, err := s.client.Lookup(s.ctx, "Rook Sample")
	s.ErrorIs(err, model.ErrLookupUnavailable)
}

func (s *ClientSuite) TestLookupMalformedBody() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}

	_, err := s.client.Lookup(s.ctx, "Rook Sample")
	s.ErrorIs(err, model.ErrLookupUnavailable)
}

func (s *ClientSuite) TestLookupTimeout() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()

	_, err := s.client.Lookup(ctx, "Rook Sample")
	s.ErrorIs(err, model.ErrLookupTimeout)
}
