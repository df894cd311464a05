package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mcoot/soulpit/internal/api/apierr"
	"github.com/mcoot/soulpit/internal/api/middleware"
	"github.com/mcoot/soulpit/internal/api/request"
	"github.com/mcoot/soulpit/internal/api/response"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/auth"
	"github.com/mcoot/soulpit/internal/services/character"
	"github.com/mcoot/soulpit/internal/services/identity"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	resolver    *identity.Resolver
	authService *auth.Service
	characters  *character.Service
	errs        errorWriter
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(resolver *identity.Resolver, authService *auth.Service, characters *character.Service, logger *slog.Logger) *PlayerHandler {
	return &PlayerHandler{
		resolver:    resolver,
		authService: authService,
		characters:  characters,
		errs:        errorWriter{logger},
	}
}

// CreateAnonymous handles POST /api/v1/players/anonymous
func (h *PlayerHandler) CreateAnonymous(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAnonymousRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	player, err := h.resolver.CreateAnonymous(r.Context(), req.Username)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.Private(w, http.StatusCreated, response.AnonymousResponse{
		Player:       response.PlayerFromModel(player),
		SessionToken: player.SessionToken,
	})
}

// Register handles POST /api/v1/players/register.
// An X-Session-Token header converts that anonymous player in place.
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	session, err := h.authService.Register(r.Context(), auth.RegisterRequest{
		Username:     req.Username,
		Password:     req.Password,
		SessionToken: middleware.CredentialsFromRequest(r).SessionToken,
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.Private(w, http.StatusCreated, response.AuthResponseFromSession(session))
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	session, err := h.authService.Login(r.Context(), auth.LoginRequest{
		Username:          req.Username,
		Password:          req.Password,
		MergeSessionToken: req.MergeSessionToken,
	})
	if errors.Is(err, model.ErrUnauthorized) {
		WriteError(w, apierr.NewInvalidCredentialsError())
		return
	}
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.Private(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// SetMainCharacter handles PUT /api/v1/players/me/main-character
func (h *PlayerHandler) SetMainCharacter(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.SetMainCharacterRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	updated, err := h.characters.SetMainCharacter(r.Context(), player.ID, model.CharacterID(req.CharacterID))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(updated))
}
