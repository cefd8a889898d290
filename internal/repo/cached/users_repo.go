// Package cached puts a read-through cache in front of a user store.
package cached

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/speakup/internal/cache"
	"github.com/geocoder89/speakup/internal/domain/user"
)

// Store mirrors account.CredentialStore.
type Store interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
	FindByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	UpdateByEmail(ctx context.Context, email string, patch user.Patch) error
	UpdateByID(ctx context.Context, id string, patch user.Patch) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]user.User, error)
}

type Recorder interface {
	CacheLookup(result string)
}

// UsersRepo caches single-user lookups. Every write drops the cached entries
// of the user it touches; cache failures only cost a trip to the inner store.
//
// A lookup only fills the cache when no write was invalidated while it was
// loading, so a row read before a write can never be cached after it.
type UsersRepo struct {
	inner   Store
	cache   cache.Store
	ttl     time.Duration
	log     *slog.Logger
	metrics Recorder

	// fillMu orders cache fills against invalidations; epoch counts invalidations.
	fillMu sync.Mutex
	epoch  uint64
}

func NewUsersRepo(inner Store, c cache.Store, ttl time.Duration, log *slog.Logger, metrics Recorder) *UsersRepo {
	if log == nil {
		log = slog.Default()
	}
	return &UsersRepo{inner: inner, cache: c, ttl: ttl, log: log, metrics: metrics}
}

func emailKey(email string) string { return "user:email:" + email }
func idKey(id string) string       { return "user:id:" + id }

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	return r.readThrough(ctx, emailKey(email), func() (user.User, error) {
		return r.inner.FindByEmail(ctx, email)
	})
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	return r.readThrough(ctx, idKey(id), func() (user.User, error) {
		return r.inner.FindByID(ctx, id)
	})
}

func (r *UsersRepo) readThrough(ctx context.Context, key string, load func() (user.User, error)) (user.User, error) {
	raw, ok, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		r.record("error")
		r.log.WarnContext(ctx, "user cache read failed", "key", key, "err", err)
	case ok:
		var rec record
		if err := json.Unmarshal(raw, &rec); err == nil {
			r.record("hit")
			return rec.toUser(), nil
		}
		r.record("error")
	default:
		r.record("miss")
	}

	started := r.currentEpoch()

	u, err := load()
	if err != nil {
		return user.User{}, err
	}

	r.fill(ctx, key, u, started)
	return u, nil
}

func (r *UsersRepo) currentEpoch() uint64 {
	r.fillMu.Lock()
	defer r.fillMu.Unlock()
	return r.epoch
}

// fill caches u unless a write was invalidated since the load began at started.
func (r *UsersRepo) fill(ctx context.Context, key string, u user.User, started uint64) {
	raw, err := json.Marshal(fromUser(u))
	if err != nil {
		return
	}

	r.fillMu.Lock()
	defer r.fillMu.Unlock()

	if r.epoch != started {
		r.log.DebugContext(ctx, "user cache fill skipped after concurrent write", "key", key)
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
		r.log.WarnContext(ctx, "user cache write failed", "key", key, "err", err)
	}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	created, err := r.inner.Create(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	// a cached miss is never stored, but drop anything left under the email
	r.invalidate(ctx, created)
	return created, nil
}

func (r *UsersRepo) UpdateByEmail(ctx context.Context, email string, patch user.Patch) error {
	current, err := r.inner.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := r.inner.UpdateByEmail(ctx, email, patch); err != nil {
		return err
	}
	r.invalidate(ctx, current, patch)
	return nil
}

func (r *UsersRepo) UpdateByID(ctx context.Context, id string, patch user.Patch) error {
	current, err := r.inner.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.inner.UpdateByID(ctx, id, patch); err != nil {
		return err
	}
	r.invalidate(ctx, current, patch)
	return nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	current, err := r.inner.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, current)
	return nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	return r.inner.List(ctx)
}

// Ping forwards to the inner store when it supports it.
func (r *UsersRepo) Ping(ctx context.Context) error {
	if p, ok := r.inner.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return errors.New("inner store has no ping")
}

func (r *UsersRepo) invalidate(ctx context.Context, u user.User, patches ...user.Patch) {
	keys := []string{idKey(u.ID), emailKey(u.Email)}
	for _, p := range patches {
		if p.Email != nil {
			keys = append(keys, emailKey(*p.Email))
		}
	}

	r.fillMu.Lock()
	defer r.fillMu.Unlock()

	r.epoch++
	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.log.ErrorContext(ctx, "user cache invalidation failed", "user_id", u.ID, "err", err)
	}
}

func (r *UsersRepo) record(result string) {
	if r.metrics != nil {
		r.metrics.CacheLookup(result)
	}
}

// record is the cached form of a user. user.User hides secrets from JSON, so
// it cannot be marshalled directly.
type record struct {
	ID                      string      `json:"id"`
	Email                   string      `json:"email"`
	HashedPassword          string      `json:"hashed_password"`
	DisplayName             *string     `json:"display_name,omitempty"`
	PhoneNumber             *string     `json:"phone_number,omitempty"`
	Gender                  *string     `json:"gender,omitempty"`
	Location                *string     `json:"location,omitempty"`
	AvatarPath              *string     `json:"avatar_path,omitempty"`
	IsAdmin                 bool        `json:"is_admin"`
	Status                  user.Status `json:"status"`
	ConfirmationToken       *string     `json:"confirmation_token,omitempty"`
	ConfirmationTokenExpiry *time.Time  `json:"confirmation_token_expires_at,omitempty"`
	ResetToken              *string     `json:"reset_token,omitempty"`
	ResetTokenExpiry        *time.Time  `json:"reset_token_expires_at,omitempty"`
	CreatedAt               time.Time   `json:"created_at"`
}

func fromUser(u user.User) record {
	return record{
		ID:                      u.ID,
		Email:                   u.Email,
		HashedPassword:          u.HashedPassword,
		DisplayName:             u.DisplayName,
		PhoneNumber:             u.PhoneNumber,
		Gender:                  u.Gender,
		Location:                u.Location,
		AvatarPath:              u.AvatarPath,
		IsAdmin:                 u.IsAdmin,
		Status:                  u.Status,
		ConfirmationToken:       u.ConfirmationToken,
		ConfirmationTokenExpiry: u.ConfirmationTokenExpiry,
		ResetToken:              u.ResetToken,
		ResetTokenExpiry:        u.ResetTokenExpiry,
		CreatedAt:               u.CreatedAt,
	}
}

func (r record) toUser() user.User {
	return user.User{
		ID:                      r.ID,
		Email:                   r.Email,
		HashedPassword:          r.HashedPassword,
		DisplayName:             r.DisplayName,
		PhoneNumber:             r.PhoneNumber,
		Gender:                  r.Gender,
		Location:                r.Location,
		AvatarPath:              r.AvatarPath,
		IsAdmin:                 r.IsAdmin,
		Status:                  r.Status,
		ConfirmationToken:       r.ConfirmationToken,
		ConfirmationTokenExpiry: r.ConfirmationTokenExpiry,
		ResetToken:              r.ResetToken,
		ResetTokenExpiry:        r.ResetTokenExpiry,
		CreatedAt:               r.CreatedAt,
	}
}
