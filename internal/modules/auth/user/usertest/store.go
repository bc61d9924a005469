// Package usertest provides an in-memory user.Store for tests.
package usertest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/himlearning/storyhub/internal/database"
	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/modules/auth/user"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store mirrors the mongo store: unique emails and atomic read list toggles.
type Store struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{users: map[primitive.ObjectID]*models.User{}}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.ReadList = append([]primitive.ObjectID{}, u.ReadList...)
	return &c
}

func (m *Store) find(match func(*models.User) bool) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return cloneUser(u)
		}
	}
	return nil
}

func (m *Store) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id }), nil
}

func (m *Store) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return m.find(func(u *models.User) bool { return u.Email == email }), nil
}

func (m *Store) FindByVerificationToken(_ context.Context, hash string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return hash != "" && u.EmailVerificationToken == hash }), nil
}

func (m *Store) FindByResetToken(_ context.Context, hash string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return hash != "" && u.ResetPasswordToken == hash }), nil
}

func (m *Store) Insert(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if other.Email == u.Email {
			return fmt.Errorf("%w: email", database.ErrDuplicateKey)
		}
	}
	m.users[u.ID] = cloneUser(u)
	return nil
}

func (m *Store) with(id primitive.ObjectID, fn func(*models.User) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.ErrNotFound
	}
	return fn(u)
}

func (m *Store) UpdateProfile(_ context.Context, id primitive.ObjectID, username, photo, photoID string) error {
	return m.with(id, func(u *models.User) error {
		u.Username, u.Photo, u.PhotoID = username, photo, photoID
		return nil
	})
}

func (m *Store) UpdateAccount(_ context.Context, id primitive.ObjectID, username, email string, role models.Role) error {
	m.mu.Lock()
	for oid, other := range m.users {
		if oid != id && other.Email == email {
			m.mu.Unlock()
			return fmt.Errorf("%w: email", database.ErrDuplicateKey)
		}
	}
	m.mu.Unlock()
	return m.with(id, func(u *models.User) error {
		u.Username, u.Email, u.Role = username, email, role
		return nil
	})
}

func (m *Store) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	return m.with(id, func(u *models.User) error {
		u.Password = hash
		u.ResetPasswordToken, u.ResetPasswordExpire = "", nil
		return nil
	})
}

func (m *Store) SetVerificationToken(_ context.Context, id primitive.ObjectID, hash string, expire time.Time) error {
	return m.with(id, func(u *models.User) error {
		u.EmailVerificationToken, u.EmailVerificationExpire = hash, nil
		if hash != "" {
			u.EmailVerificationExpire = &expire
		}
		return nil
	})
}

func (m *Store) MarkVerified(_ context.Context, id primitive.ObjectID) error {
	return m.with(id, func(u *models.User) error {
		u.IsEmailVerified = true
		u.EmailVerificationToken, u.EmailVerificationExpire = "", nil
		return nil
	})
}

func (m *Store) SetResetToken(_ context.Context, id primitive.ObjectID, hash string, expire time.Time) error {
	return m.with(id, func(u *models.User) error {
		u.ResetPasswordToken, u.ResetPasswordExpire = hash, nil
		if hash != "" {
			u.ResetPasswordExpire = &expire
		}
		return nil
	})
}

func (m *Store) ToggleReadList(_ context.Context, id, storyID primitive.ObjectID) (*models.User, error) {
	var out *models.User
	err := m.with(id, func(u *models.User) error {
		if models.ContainsID(u.ReadList, storyID) {
			kept := u.ReadList[:0]
			for _, s := range u.ReadList {
				if s != storyID {
					kept = append(kept, s)
				}
			}
			u.ReadList = kept
		} else {
			u.ReadList = append(u.ReadList, storyID)
		}
		u.ReadListLength = len(u.ReadList)
		out = cloneUser(u)
		return nil
	})
	if err == user.ErrNotFound {
		return nil, nil
	}
	return out, err
}

func (m *Store) List(_ context.Context, search string, skip, limit int64) ([]models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if search == "" || strings.Contains(strings.ToLower(u.Username), strings.ToLower(search)) {
			out = append(out, *cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if skip > total {
		skip = total
	}
	end := total
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return out[skip:end], total, nil
}

func (m *Store) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

var _ user.Store = (*Store)(nil)
