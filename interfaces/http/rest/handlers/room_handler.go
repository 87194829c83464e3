package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"handswers-backend/application/services"
	pkgerrors "handswers-backend/pkg/errors"
)

// RoomHandler serves the teacher facing room endpoints and code lookup.
type RoomHandler struct {
	base
	rooms *services.RoomService
}

func NewRoomHandler(rooms *services.RoomService, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{base: base{errs: errs, logger: logger}, rooms: rooms}
}

// Create handles POST /room/create
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.rooms.Create(r.Context(), c)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "Question room created successfully.", created)
}

// Verify handles GET /room/verify/{roomCode}
func (h *RoomHandler) Verify(w http.ResponseWriter, r *http.Request) {
	roomID, err := h.rooms.Verify(r.Context(), chi.URLParam(r, "roomCode"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "Question room found.", map[string]string{"roomId": roomID})
}

// Get handles GET /room/get/{roomId}/{page}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := page(chi.URLParam(r, "page"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.rooms.Get(r.Context(), c, chi.URLParam(r, "roomId"), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "Question room found.", view)
}

// ListForTeacher handles GET /room/get/teacher/{teacherId}/{page}
func (h *RoomHandler) ListForTeacher(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := page(chi.URLParam(r, "page"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rooms, err := h.rooms.ListForTeacher(r.Context(), c, chi.URLParam(r, "teacherId"), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "Question rooms found.", rooms)
}

// Close handles PUT /room/close/{roomId}
func (h *RoomHandler) Close(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.rooms.Close(r.Context(), c, chi.URLParam(r, "roomId")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "Question room closed.", nil)
}

// Delete handles DELETE /room/delete/{roomId}
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.rooms.Delete(r.Context(), c, chi.URLParam(r, "roomId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("Room deleted",
		zap.String("roomId", res.RoomID),
		zap.Int("questions", res.QuestionsDeleted),
		zap.Int("messages", res.MessagesDeleted),
	)
	h.ok(w, "Question room deleted.", res)
}
