package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/repo"
	"github.com/Skotchmaster/handmade_shop/internal/util"
)

// UserService is the admin view over customer accounts.
type UserService struct {
	Repo *repo.GormRepo
}

func (s *UserService) ListCustomers(ctx context.Context, page, size int) ([]models.User, util.Meta, error) {
	offset, limit := util.Calculate(page, size)
	users, total, err := s.Repo.ListUsers(ctx, models.RoleUser, offset, limit)
	if err != nil {
		return nil, util.Meta{}, err
	}
	return users, util.NewMeta(page, limit, total), nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// ChangeRole is disabled; roles are assigned out of band.
func (s *UserService) ChangeRole(ctx context.Context, id uuid.UUID, role string) error {
	return fmt.Errorf("%w: changing roles is disabled", ErrValidation)
}

// SetActive locks or unlocks a customer. Locking revokes every refresh token.
func (s *UserService) SetActive(ctx context.Context, actorID, id uuid.UUID, active *bool) (*models.User, error) {
	if active == nil {
		return nil, fmt.Errorf("%w: is_active must be a boolean", ErrValidation)
	}
	if actorID == id {
		return nil, fmt.Errorf("%w: you cannot lock or unlock yourself", ErrValidation)
	}
	u, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	if u.Role == models.RoleAdmin {
		return nil, fmt.Errorf("%w: admin accounts cannot be locked", ErrValidation)
	}
	u.IsActive = *active
	if err := s.Repo.SaveUser(ctx, u); err != nil {
		return nil, err
	}
	if !u.IsActive {
		if err := s.Repo.RevokeUserRefreshTokens(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	logger(ctx, "users.set_active").Info("set_active_success", "user_id", u.ID, "is_active", u.IsActive)
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return fmt.Errorf("%w: you cannot delete your own account", ErrValidation)
	}
	if err := s.Repo.DeleteUser(ctx, id); err != nil {
		return notFound(err, "user")
	}
	return nil
}
