package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
	pkgerrors "handswers-backend/pkg/errors"
)

const (
	SchoolsPageSize = 10
	UsersPageSize   = 25
)

// NewUsers is a bulk account request for one school.
type NewUsers struct {
	SchoolID string
	Emails   []string
	Type     entities.UserType
}

// AdminService manages schools and the accounts that belong to them.
type AdminService struct {
	users   ports.UserRepository
	schools ports.SchoolRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewAdminService(users ports.UserRepository, schools ports.SchoolRepository, logger *zap.Logger) *AdminService {
	return &AdminService{users: users, schools: schools, logger: logger, now: time.Now}
}

func (s *AdminService) ListSchools(ctx context.Context, page int) ([]*entities.School, error) {
	return s.schools.GetAll(ctx, page, SchoolsPageSize)
}

// CreateSchool adds a school. Names are unique.
func (s *AdminService) CreateSchool(ctx context.Context, name, address string) (*entities.School, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(address) == "" {
		return nil, pkgerrors.NewValidationError("Invalid request. Missing fields")
	}

	existing, err := s.schools.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, pkgerrors.NewConflictError("School already exists.")
	}

	school := entities.NewSchool(name, address, s.now())
	if err := s.schools.Create(ctx, school); err != nil {
		return nil, err
	}
	s.logger.Info("School created", zap.String("schoolId", school.ID))
	return school, nil
}

func (s *AdminService) EditSchool(ctx context.Context, id string, upd entities.SchoolUpdate) (*entities.School, error) {
	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return nil, pkgerrors.NewValidationError("Invalid request. Missing or invalid fields")
		}
		existing, err := s.schools.GetByName(ctx, *upd.Name)
		if err != nil {
			return nil, err
		}
		for _, other := range existing {
			if other.ID != id {
				return nil, pkgerrors.NewConflictError("School already exists.")
			}
		}
	}
	school, err := s.schools.Update(ctx, id, upd)
	return school, s.mapUpdateErr(err, "School not found.")
}

func (s *AdminService) DeleteSchool(ctx context.Context, id string) error {
	_, err := s.schools.Delete(ctx, id)
	return notFoundAs(err, "School not found.")
}

// ListUsers pages through one school's accounts of a type.
func (s *AdminService) ListUsers(ctx context.Context, schoolID string, userType entities.UserType, page int) ([]*entities.User, error) {
	if schoolID == "" || !userType.Valid() {
		return nil, pkgerrors.NewValidationError("Invalid request. Missing or invalid fields")
	}
	return s.users.GetBySchoolAndType(ctx, schoolID, userType, page, UsersPageSize)
}

// CreateUsers registers a batch of accounts. Every address must be
// well formed and not yet registered.
func (s *AdminService) CreateUsers(ctx context.Context, req NewUsers) (ports.BatchResult, error) {
	if req.Type != entities.UserTypeStudent && req.Type != entities.UserTypeTeacher {
		return ports.BatchResult{}, pkgerrors.NewValidationError("Invalid request. Missing or invalid fields")
	}
	if len(req.Emails) == 0 {
		return ports.BatchResult{}, pkgerrors.NewValidationError("Invalid request. Missing or invalid fields")
	}

	if _, err := s.schools.GetByID(ctx, req.SchoolID); err != nil {
		if isNotFound(err) {
			return ports.BatchResult{}, pkgerrors.NewValidationError("Invalid request. School does not exist")
		}
		return ports.BatchResult{}, err
	}

	seen := make(map[string]bool, len(req.Emails))
	users := make([]*entities.User, 0, len(req.Emails))
	for _, email := range req.Emails {
		email = strings.TrimSpace(email)
		if !entities.ValidEmail(email) {
			return ports.BatchResult{}, pkgerrors.NewValidationError(fmt.Sprintf("Invalid email address: %s", email))
		}
		if seen[email] {
			continue
		}
		seen[email] = true

		existing, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return ports.BatchResult{}, err
		}
		if len(existing) > 0 {
			return ports.BatchResult{}, pkgerrors.NewConflictError(fmt.Sprintf("User already exists: %s", email))
		}
		users = append(users, entities.NewUser(email, req.Type, req.SchoolID, s.now()))
	}

	res, err := s.users.CreateMany(ctx, users)
	if err != nil {
		return res, err
	}
	if res.Unprocessed > 0 {
		s.logger.Warn("Some users were not created",
			zap.String("schoolId", req.SchoolID),
			zap.Int("unprocessed", res.Unprocessed),
		)
	}
	return res, nil
}

func (s *AdminService) EditUser(ctx context.Context, id string, upd entities.UserUpdate) (*entities.User, error) {
	user, err := s.users.Update(ctx, id, upd)
	return user, s.mapUpdateErr(err, "User not found.")
}

func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	_, err := s.users.Delete(ctx, id)
	return notFoundAs(err, "User not found.")
}

func (s *AdminService) mapUpdateErr(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case isNoUpdate(err):
		return pkgerrors.NewValidationError("Invalid request. Missing or invalid fields")
	default:
		return notFoundAs(err, notFound)
	}
}
