package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/soulpit/internal/api/middleware"
	"github.com/mcoot/soulpit/internal/api/request"
	"github.com/mcoot/soulpit/internal/api/response"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/join"
	"github.com/mcoot/soulpit/internal/services/list"
)

// JoinHandler handles the share code endpoints. Neither requires an identity.
type JoinHandler struct {
	lists *list.Controller
	join  *join.Service
	errs  errorWriter
}

// NewJoinHandler creates a new join handler
func NewJoinHandler(lists *list.Controller, joinService *join.Service, logger *slog.Logger) *JoinHandler {
	return &JoinHandler{
		lists: lists,
		join:  joinService,
		errs:  errorWriter{logger},
	}
}

// Preview handles GET /api/v1/join/{code}
func (h *JoinHandler) Preview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.lists.PreviewByShareCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PreviewFromModel(preview))
}

// Join handles POST /api/v1/join/{code}. A caller without credentials
// gets a new anonymous player whose session token is returned once.
func (h *JoinHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req request.JoinRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	choice, err := req.Choice()
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.join.Join(r.Context(), middleware.CredentialsFromRequest(r), model.JoinRequest{
		ShareCode:   list.NormalizeShareCode(mux.Vars(r)["code"]),
		DisplayName: req.DisplayName,
		Character:   choice,
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.Private(w, http.StatusCreated, response.JoinResponseFromResult(result))
}
