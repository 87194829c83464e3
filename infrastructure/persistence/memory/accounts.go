package memory

import (
	"context"
	"slices"
	"sort"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
)

type UserRepository struct{ s *Store }
type SchoolRepository struct{ s *Store }

func (s *Store) Users() *UserRepository     { return &UserRepository{s} }
func (s *Store) Schools() *SchoolRepository { return &SchoolRepository{s} }

func copyUser(u entities.User) *entities.User {
	u.Roles = slices.Clone(u.Roles)
	return &u
}

func (r *UserRepository) sorted(keep func(entities.User) bool) []*entities.User {
	var out []*entities.User
	for _, u := range r.s.users {
		if keep(u) {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) ([]*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(func(u entities.User) bool { return u.Email == email }), nil
}

func (r *UserRepository) GetBySchoolAndType(_ context.Context, schoolID string, userType entities.UserType, page, pageSize int) ([]*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := r.sorted(func(u entities.User) bool { return u.School == schoolID && u.Type == userType })
	return pageOf(users, page, pageSize), nil
}

func (r *UserRepository) CreateMany(_ context.Context, users []*entities.User) (ports.BatchResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range users {
		r.s.users[u.ID] = *copyUser(*u)
	}
	return ports.BatchResult{Requested: len(users), Processed: len(users), Requests: (len(users) + 24) / 25}, nil
}

func (r *UserRepository) Update(_ context.Context, id string, upd entities.UserUpdate) (*entities.User, error) {
	if len(upd.Fields()) == 0 {
		return nil, ports.ErrNoUpdate
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if upd.Enabled != nil {
		u.Enabled = *upd.Enabled
	}
	r.s.users[id] = u
	return copyUser(u), nil
}

func (r *UserRepository) Delete(_ context.Context, id string) (*entities.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	delete(r.s.users, id)
	return copyUser(u), nil
}

func (r *SchoolRepository) GetAll(_ context.Context, page, pageSize int) ([]*entities.School, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entities.School, 0, len(r.s.schools))
	for _, sc := range r.s.schools {
		sc := sc
		out = append(out, &sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return pageOf(out, page, pageSize), nil
}

func (r *SchoolRepository) GetByID(_ context.Context, id string) (*entities.School, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sc, ok := r.s.schools[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &sc, nil
}

func (r *SchoolRepository) GetByName(_ context.Context, name string) ([]*entities.School, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.School
	for _, sc := range r.s.schools {
		if sc.Name == name {
			sc := sc
			out = append(out, &sc)
		}
	}
	return out, nil
}

func (r *SchoolRepository) Create(_ context.Context, school *entities.School) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.schools[school.ID] = *school
	return nil
}

func (r *SchoolRepository) Update(_ context.Context, id string, upd entities.SchoolUpdate) (*entities.School, error) {
	if len(upd.Fields()) == 0 {
		return nil, ports.ErrNoUpdate
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sc, ok := r.s.schools[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if upd.Name != nil {
		sc.Name = *upd.Name
	}
	if upd.Address != nil {
		sc.Address = *upd.Address
	}
	r.s.schools[id] = sc
	return &sc, nil
}

func (r *SchoolRepository) Delete(_ context.Context, id string) (*entities.School, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sc, ok := r.s.schools[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	delete(r.s.schools, id)
	return &sc, nil
}

var (
	_ ports.UserRepository   = (*UserRepository)(nil)
	_ ports.SchoolRepository = (*SchoolRepository)(nil)
)
