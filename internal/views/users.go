package views

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-feed-sync/internal/cache"
	"go-feed-sync/internal/coordinator"
	"go-feed-sync/internal/lifecycle"
	"go-feed-sync/internal/models"
)

// UsersClient lists platform members
type UsersClient interface {
	Users(ctx context.Context) ([]models.User, error)
}

// UsersState is the render state of the user directory
type UsersState struct {
	Status
	Users []models.User `json:"users"`
}

// Users is the user directory, loaded once per mount
type Users struct {
	base
	client UsersClient
	ttl    time.Duration

	users []models.User
}

var _ View = (*Users)(nil)

// NewUsers creates the user directory view
func NewUsers(coord *coordinator.Coordinator, client UsersClient, ttl time.Duration, logger *zap.Logger) *Users {
	return &Users{
		base:   newBase("users", coord, logger),
		client: client,
		ttl:    ttl,
	}
}

// Mount loads the directory
func (u *Users) Mount(ctx context.Context) {
	life := u.mount(ctx)
	go func() { _ = u.load(life.Context(), life, initial(u.ttl)) }()
}

// Retry reloads the directory with a visible loading transition
func (u *Users) Retry(ctx context.Context) error {
	life, err := u.current()
	if err != nil {
		return err
	}
	return u.load(ctx, life, retry(u.ttl))
}

func (u *Users) load(ctx context.Context, life *lifecycle.Lifetime, opts coordinator.Options) error {
	return load(ctx, &u.base, life, cache.UsersKey(), u.client.Users, opts, func(value []models.User) {
		u.users = value
	})
}

// Snapshot implements View
func (u *Users) Snapshot() any {
	u.mu.Lock()
	defer u.mu.Unlock()
	return UsersState{
		Status: u.statusLocked(),
		Users:  append([]models.User(nil), u.users...),
	}
}
