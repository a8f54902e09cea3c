package service

import (
	"context"

	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/repo"
)

type SettingsService struct {
	Repo *repo.GormRepo
}

func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	return s.Repo.GetOrCreateSettings(ctx)
}

// Update replaces the lists that are present; a nil list is left as is.
func (s *SettingsService) Update(ctx context.Context, promotions []models.Promotion, policies []models.Policy) (*models.Settings, error) {
	cur, err := s.Repo.GetOrCreateSettings(ctx)
	if err != nil {
		return nil, err
	}
	if promotions != nil {
		cur.Promotions = promotions
	}
	if policies != nil {
		cur.Policies = policies
	}
	if err := s.Repo.SaveSettings(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}
