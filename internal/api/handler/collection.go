package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/soulpit/internal/api/middleware"
	"github.com/mcoot/soulpit/internal/api/request"
	"github.com/mcoot/soulpit/internal/api/response"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/collection"
)

// CollectionHandler handles character collections, suggestions and highscores
type CollectionHandler struct {
	collections *collection.Service
	errs        errorWriter
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(collections *collection.Service, logger *slog.Logger) *CollectionHandler {
	return &CollectionHandler{
		collections: collections,
		errs:        errorWriter{logger},
	}
}

func characterID(r *http.Request) model.CharacterID {
	return model.CharacterID(mux.Vars(r)["id"])
}

// decodeCreature reads a CreatureRequest body and requires its creature_id
func decodeCreature(w http.ResponseWriter, r *http.Request) (model.CreatureID, error) {
	var req request.CreatureRequest
	if err := decodeBody(w, r, &req); err != nil {
		return "", err
	}
	if req.CreatureID == "" {
		return "", model.NewValidationError("creature_id", "is required")
	}
	return model.CreatureID(req.CreatureID), nil
}

// Get handles GET /api/v1/characters/{id}/soulcores
func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	id := characterID(r)

	c, err := h.collections.Get(r.Context(), id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CollectionFromModel(c, player.OwnsCharacter(id)))
}

// Add handles POST /api/v1/characters/{id}/soulcores
func (h *CollectionHandler) Add(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	creature, err := decodeCreature(w, r)
	if err != nil {
		WriteError(w, err)
		return
	}

	c, err := h.collections.Add(r.Context(), player.ID, characterID(r), creature)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CollectionFromModel(c, true))
}

// Remove handles DELETE /api/v1/characters/{id}/soulcores/{creature_id}
func (h *CollectionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	c, err := h.collections.Remove(r.Context(), player.ID, characterID(r), creatureID(r))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CollectionFromModel(c, true))
}

// Suggestions handles GET /api/v1/characters/{id}/suggestions
func (h *CollectionHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	ids, err := h.collections.Suggestions(r.Context(), player.ID, characterID(r))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	response.Collection(w, out)
}

// Accept handles POST /api/v1/characters/{id}/suggestions/accept
func (h *CollectionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.collections.Accept)
}

// Dismiss handles POST /api/v1/characters/{id}/suggestions/dismiss
func (h *CollectionHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.collections.Dismiss)
}

func (h *CollectionHandler) decide(w http.ResponseWriter, r *http.Request, fn func(context.Context, model.PlayerID, model.CharacterID, model.CreatureID) (*model.Collection, error)) {
	player := middleware.MustGetPlayer(r.Context())

	creature, err := decodeCreature(w, r)
	if err != nil {
		WriteError(w, err)
		return
	}

	c, err := fn(r.Context(), player.ID, characterID(r), creature)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CollectionFromModel(c, true))
}

// Pending handles GET /api/v1/players/me/suggestions
func (h *CollectionHandler) Pending(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	pending, err := h.collections.Pending(r.Context(), player.ID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.Collection(w, response.SuggestionsFromPending(pending))
}

// Highscores handles GET /api/v1/highscores?page=N
func (h *CollectionHandler) Highscores(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			WriteError(w, model.NewValidationError("page", "must be a positive integer"))
			return
		}
		page = n
	}

	scores, err := h.collections.Highscores(r.Context(), page)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.HighscoresFromService(scores))
}
