package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/soulpit/internal/api/middleware"
	"github.com/mcoot/soulpit/internal/api/request"
	"github.com/mcoot/soulpit/internal/api/response"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/catalog"
	"github.com/mcoot/soulpit/internal/services/ledger"
)

// CoreHandler handles soul core endpoints and the creature catalog
type CoreHandler struct {
	ledger  *ledger.Service
	catalog *catalog.Service
	errs    errorWriter
}

// NewCoreHandler creates a new soul core handler
func NewCoreHandler(ledgerService *ledger.Service, catalogService *catalog.Service, logger *slog.Logger) *CoreHandler {
	return &CoreHandler{
		ledger:  ledgerService,
		catalog: catalogService,
		errs:    errorWriter{logger},
	}
}

func creatureID(r *http.Request) model.CreatureID {
	return model.CreatureID(mux.Vars(r)["creature_id"])
}

// Creatures handles GET /api/v1/creatures
func (h *CoreHandler) Creatures(w http.ResponseWriter, r *http.Request) {
	if !h.catalog.IsLoaded() {
		WriteError(w, model.ErrCatalogNotLoaded)
		return
	}
	response.Collection(w, response.CreaturesFromModel(h.catalog.All()))
}

// Add handles POST /api/v1/lists/{id}/cores
func (h *CoreHandler) Add(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.AddCoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.CreatureID == "" {
		WriteError(w, model.NewValidationError("creature_id", "is required"))
		return
	}

	core, err := h.ledger.AddCore(r.Context(), listID(r), player.ID, model.CreatureID(req.CreatureID))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.SoulCoreFromModel(core))
}

// Obtain handles POST /api/v1/lists/{id}/cores/{creature_id}/obtain
func (h *CoreHandler) Obtain(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.ObtainCoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.CharacterID == "" {
		WriteError(w, model.NewValidationError("character_id", "is required"))
		return
	}

	core, err := h.ledger.MarkObtained(r.Context(), listID(r), player.ID, creatureID(r), model.CharacterID(req.CharacterID))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SoulCoreFromModel(core))
}

// Unlock handles POST /api/v1/lists/{id}/cores/{creature_id}/unlock
func (h *CoreHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	core, err := h.ledger.MarkUnlocked(r.Context(), listID(r), player.ID, creatureID(r))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SoulCoreFromModel(core))
}

// Summary handles GET /api/v1/lists/{id}/summary
func (h *CoreHandler) Summary(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	summary, err := h.ledger.Summary(r.Context(), listID(r), player.ID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SummaryFromModel(summary))
}
