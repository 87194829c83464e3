package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"handswers-backend/application/services"
	pkgerrors "handswers-backend/pkg/errors"
)

type MessageHandler struct {
	base
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{base: base{errs: errs, logger: logger}, messages: messages}
}

// SendMessageRequest is the body of POST /room/message/create.
type SendMessageRequest struct {
	questionRef
	Message string `json:"message"`
}

// History handles GET /room/message/history/{page}?roomId&questionId&timestamp
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	ts, err := parseTimestamp(q.Get("timestamp"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := page(chi.URLParam(r, "page"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ref := services.QuestionRef{RoomID: q.Get("roomId"), QuestionID: q.Get("questionId"), Timestamp: ts}
	msgs, err := h.messages.History(r.Context(), c, ref, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "Messages fetched successfully.", msgs)
}

// Send handles POST /room/message/create and answers with the tutor reply.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	c, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req SendMessageRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	reply, err := h.messages.Send(r.Context(), c, req.ref(), req.Message)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "Message posted successfully.", reply)
}
