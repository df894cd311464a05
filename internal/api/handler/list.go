package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/soulpit/internal/api/middleware"
	"github.com/mcoot/soulpit/internal/api/request"
	"github.com/mcoot/soulpit/internal/api/response"
	"github.com/mcoot/soulpit/internal/api/sse"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/list"
)

// ListHandler handles list and membership endpoints
type ListHandler struct {
	lists      *list.Controller
	hubManager *sse.HubManager
	errs       errorWriter
}

// NewListHandler creates a new list handler
func NewListHandler(lists *list.Controller, hubManager *sse.HubManager, logger *slog.Logger) *ListHandler {
	return &ListHandler{
		lists:      lists,
		hubManager: hubManager,
		errs:       errorWriter{logger},
	}
}

func listID(r *http.Request) model.ListID {
	return model.ListID(mux.Vars(r)["id"])
}

// Create handles POST /api/v1/lists
func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.CreateListRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	choice, err := req.Choice()
	if err != nil {
		WriteError(w, err)
		return
	}

	l, err := h.lists.CreateList(r.Context(), player.ID, model.CreateListRequest{
		Name:        req.Name,
		Description: req.Description,
		World:       req.World,
		Character:   choice,
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.ListFromModel(l))
}

// Mine handles GET /api/v1/lists
func (h *ListHandler) Mine(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	lists, err := h.lists.ListsForPlayer(r.Context(), player.ID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.Collection(w, response.ListItemsFromModel(lists, player.ID))
}

// Get handles GET /api/v1/lists/{id}
func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	l, err := h.lists.GetList(r.Context(), listID(r), player.ID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ListFromModel(l))
}

// RotateShareCode handles POST /api/v1/lists/{id}/rotate-code
func (h *ListHandler) RotateShareCode(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	l, err := h.lists.RotateShareCode(r.Context(), listID(r), player.ID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ListFromModel(l))
}

// Leave handles POST /api/v1/lists/{id}/leave
func (h *ListHandler) Leave(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	if err := h.lists.LeaveList(r.Context(), listID(r), player.ID); err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.NoContent(w)
}

// RemoveMember handles DELETE /api/v1/lists/{id}/members/{player_id}
func (h *ListHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	target := model.PlayerID(mux.Vars(r)["player_id"])

	if err := h.lists.RemoveMember(r.Context(), listID(r), player.ID, target); err != nil {
		h.errs.write(w, r, err)
		return
	}

	response.NoContent(w)
}

// Events handles GET /api/v1/lists/{id}/events. Only members may subscribe.
func (h *ListHandler) Events(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	l, err := h.lists.GetList(r.Context(), listID(r), player.ID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	sse.ServeSSE(w, r, h.hubManager.GetOrCreateHub(l.ID), player.ID)
}
