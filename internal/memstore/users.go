package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/internal/modules/user"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, u *user.User) error {
	unlock := r.s.lock(ctx)
	defer unlock()

	email := strings.ToLower(u.Email)
	if _, exists := r.s.usersByEmail[email]; exists {
		return user.ErrEmailExists
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = copyUser(u)
	r.s.usersByEmail[email] = u.ID
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, user.ErrUserNotFound
	}
	unlock := r.s.rlock(ctx)
	defer unlock()

	u, ok := r.s.users[uid]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	unlock := r.s.rlock(ctx)
	defer unlock()

	id, ok := r.s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return copyUser(r.s.users[id]), nil
}

func (r *userRepo) Update(ctx context.Context, u *user.User) error {
	unlock := r.s.lock(ctx)
	defer unlock()

	prev, ok := r.s.users[u.ID]
	if !ok {
		return user.ErrUserNotFound
	}
	newEmail := strings.ToLower(u.Email)
	oldEmail := strings.ToLower(prev.Email)
	if newEmail != oldEmail {
		if _, exists := r.s.usersByEmail[newEmail]; exists {
			return user.ErrEmailExists
		}
		delete(r.s.usersByEmail, oldEmail)
		r.s.usersByEmail[newEmail] = u.ID
	}
	u.CreatedAt = prev.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	r.s.users[u.ID] = copyUser(u)
	return nil
}

func (r *userRepo) SetActive(ctx context.Context, id string, active bool) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return user.ErrUserNotFound
	}
	unlock := r.s.lock(ctx)
	defer unlock()

	u, ok := r.s.users[uid]
	if !ok {
		return user.ErrUserNotFound
	}
	u.IsActive = active
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userRepo) List(ctx context.Context, f user.ListFilter) ([]*user.User, int, error) {
	unlock := r.s.rlock(ctx)
	defer unlock()

	var matched []*user.User
	search := strings.ToLower(f.Search)
	for _, u := range r.s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		matched = append(matched, copyUser(u))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start, end := paginate(f.Page, f.Limit, total)
	return matched[start:end], total, nil
}
