package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"handswers-backend/application/services"
	"handswers-backend/domain/core/entities"
	pkgerrors "handswers-backend/pkg/errors"
)

// AdminHandler serves the /user endpoints. Every route requires the
// admin role.
type AdminHandler struct {
	base
	admin *services.AdminService
}

func NewAdminHandler(admin *services.AdminService, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{base: base{errs: errs, logger: logger}, admin: admin}
}

type CreateSchoolRequest struct {
	SchoolName    string `json:"schoolName" validate:"required"`
	SchoolAddress string `json:"schoolAddress" validate:"required"`
}

type EditSchoolRequest struct {
	SchoolName    *string `json:"schoolName"`
	SchoolAddress *string `json:"schoolAddress"`
}

type CreateUsersRequest struct {
	SchoolID string   `json:"schoolId" validate:"required"`
	UserList []string `json:"userList" validate:"required,min=1"`
	UserType string   `json:"userType" validate:"required,oneof=student teacher"`
}

type EditUserRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// ListSchools handles GET /user/get/schools?page
func (h *AdminHandler) ListSchools(w http.ResponseWriter, r *http.Request) {
	p, err := page(r.URL.Query().Get("page"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	schools, err := h.admin.ListSchools(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "school objects fetched successfully", schools)
}

// ListUsers handles GET /user/get/users/{schoolId}?userType&page
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := page(q.Get("page"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	userType := entities.UserType(q.Get("userType"))
	if userType == "" {
		userType = entities.UserTypeStudent
	}
	users, err := h.admin.ListUsers(r.Context(), chi.URLParam(r, "schoolId"), userType, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "user objects fetched successfully", users)
}

// CreateSchool handles POST /user/create/school
func (h *AdminHandler) CreateSchool(w http.ResponseWriter, r *http.Request) {
	var req CreateSchoolRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	school, err := h.admin.CreateSchool(r.Context(), req.SchoolName, req.SchoolAddress)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "school object created successfully", school)
}

// EditSchool handles PUT /user/edit/school/{id}
func (h *AdminHandler) EditSchool(w http.ResponseWriter, r *http.Request) {
	var req EditSchoolRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	school, err := h.admin.EditSchool(r.Context(), chi.URLParam(r, "id"), entities.SchoolUpdate{
		Name:    req.SchoolName,
		Address: req.SchoolAddress,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "school object edited successfully", school)
}

// DeleteSchool handles DELETE /user/delete/school/{id}
func (h *AdminHandler) DeleteSchool(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteSchool(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "school object deleted successfully", nil)
}

// CreateUsers handles POST /user/create/users
func (h *AdminHandler) CreateUsers(w http.ResponseWriter, r *http.Request) {
	var req CreateUsersRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.admin.CreateUsers(r.Context(), services.NewUsers{
		SchoolID: req.SchoolID,
		Emails:   req.UserList,
		Type:     entities.UserType(req.UserType),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "user objects created successfully", map[string]int{
		"created":     res.Processed,
		"unprocessed": res.Unprocessed,
	})
}

// EditUser handles PUT /user/edit/{id}
func (h *AdminHandler) EditUser(w http.ResponseWriter, r *http.Request) {
	var req EditUserRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.admin.EditUser(r.Context(), chi.URLParam(r, "id"), entities.UserUpdate{Enabled: req.Enabled})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "user object edited successfully", user)
}

// DeleteUser handles DELETE /user/delete/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "user object deleted successfully", nil)
}
