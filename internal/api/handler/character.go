package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/soulpit/internal/api/middleware"
	"github.com/mcoot/soulpit/internal/api/request"
	"github.com/mcoot/soulpit/internal/api/response"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/character"
)

// CharacterHandler handles character registration endpoints
type CharacterHandler struct {
	characters *character.Service
	errs       errorWriter
}

// NewCharacterHandler creates a new character handler
func NewCharacterHandler(characters *character.Service, logger *slog.Logger) *CharacterHandler {
	return &CharacterHandler{
		characters: characters,
		errs:       errorWriter{logger},
	}
}

// List handles GET /api/v1/characters
func (h *CharacterHandler) List(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	chars, err := h.characters.ListCharacters(r.Context(), player.ID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.Collection(w, response.CharactersFromModel(chars))
}

// Register handles POST /api/v1/characters
func (h *CharacterHandler) Register(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.RegisterCharacterRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	var opts []character.RegisterOption
	if req.World != "" {
		opts = append(opts, character.WithWorld(req.World))
	}
	ch, err := h.characters.RegisterCharacter(r.Context(), player.ID, req.Name, opts...)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.CharacterFromModel(ch))
}

// Get handles GET /api/v1/characters/{id}
func (h *CharacterHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.CharacterID(mux.Vars(r)["id"])

	ch, err := h.characters.GetCharacter(r.Context(), id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CharacterFromModel(ch))
}

// Delete handles DELETE /api/v1/characters/{id}
func (h *CharacterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	id := model.CharacterID(mux.Vars(r)["id"])

	if err := h.characters.RemoveCharacter(r.Context(), player.ID, id); err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.NoContent(w)
}

// Sync handles POST /api/v1/characters/{id}/sync
func (h *CharacterHandler) Sync(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	id := model.CharacterID(mux.Vars(r)["id"])

	if !player.OwnsCharacter(id) {
		WriteError(w, model.ErrUnauthorized)
		return
	}

	ch, err := h.characters.SyncCharacter(r.Context(), id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CharacterFromModel(ch))
}
