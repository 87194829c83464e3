package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"handswers-backend/application/services"
	"handswers-backend/pkg/auth"
	"handswers-backend/pkg/common"
	pkgerrors "handswers-backend/pkg/errors"
	"handswers-backend/pkg/utils"
)

// maxBodyBytes mirrors the 1mb JSON limit of the public API.
const maxBodyBytes = 1 << 20

// base carries what every handler needs to answer a request.
type base struct {
	errs   *pkgerrors.ErrorHandler
	logger *zap.Logger
}

func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	b.errs.Handle(w, r, err)
}

func (b base) ok(w http.ResponseWriter, message string, data interface{}) {
	common.RespondJSON(w, http.StatusOK, message, data)
}

// caller converts the authenticated user into a service principal.
func caller(r *http.Request) (services.Caller, error) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		return services.Caller{}, pkgerrors.NewUnauthorizedError("Unauthorized.")
	}
	return services.Caller{UserID: user.UserID, Email: user.Email, Roles: user.Roles}, nil
}

// decode reads a JSON body into v and runs its validation tags.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return pkgerrors.NewValidationError("Invalid request body.")
	}
	if err := utils.ValidateStruct(v); err != nil {
		return pkgerrors.NewValidationError("Invalid request. " + err.Error())
	}
	return nil
}

func page(raw string) (int, error) {
	p, ok := common.ParsePage(raw)
	if !ok {
		return 0, pkgerrors.NewValidationError("Invalid page parameter.")
	}
	return p, nil
}

// questionRef is the addressing triple sent by the chat client.
type questionRef struct {
	RoomID            string `json:"roomId" validate:"required"`
	QuestionID        string `json:"questionId" validate:"required"`
	QuestionTimestamp *int64 `json:"questionTimestamp" validate:"required"`
}

func (q questionRef) ref() services.QuestionRef {
	return services.QuestionRef{RoomID: q.RoomID, QuestionID: q.QuestionID, Timestamp: *q.QuestionTimestamp}
}

func parseTimestamp(raw string) (int64, error) {
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, pkgerrors.NewValidationError("Invalid question timestamp.")
	}
	return ts, nil
}
