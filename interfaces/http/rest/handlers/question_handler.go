package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"handswers-backend/application/services"
	pkgerrors "handswers-backend/pkg/errors"
)

type QuestionHandler struct {
	base
	questions *services.QuestionService
}

func NewQuestionHandler(questions *services.QuestionService, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *QuestionHandler {
	return &QuestionHandler{base: base{errs: errs, logger: logger}, questions: questions}
}

// CreateQuestionRequest is the body of POST /room/question/create. The
// content limits are enforced by the service.
type CreateQuestionRequest struct {
	RoomID   string `json:"roomId"`
	Question string `json:"question"`
}

// Create handles POST /room/question/create
func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req CreateQuestionRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.questions.Create(r.Context(), c, req.RoomID, req.Question)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "Question created successfully.", created)
}

// RequestHelp handles PUT /room/question/request-help
func (h *QuestionHandler) RequestHelp(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, h.questions.RequestHelp, "Teacher help requested.")
}

// Close handles PUT /room/question/close
func (h *QuestionHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, h.questions.Close, "Question closed.")
}

func (h *QuestionHandler) update(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, c services.Caller, ref services.QuestionRef) error, message string) {
	c, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req questionRef
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := op(r.Context(), c, req.ref()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, message, nil)
}
