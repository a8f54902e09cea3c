package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/handmade_shop/internal/models"
)

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Create(u).Error
}

func (r *GormRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

// GetUserByVerificationToken ignores expiry so callers can tell expired from unknown tokens.
func (r *GormRepo) GetUserByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).
		Where("email_verification_token = ?", token).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByResetToken only matches tokens that have not expired yet.
func (r *GormRepo) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).
		Where("password_reset_token = ? AND password_reset_expires > ?", token, now.UTC()).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveUser writes every column, so encrypted fields go through the serializer.
func (r *GormRepo) SaveUser(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Save(u).Error
}

func (r *GormRepo) ListUsers(ctx context.Context, role string, offset, limit int) ([]models.User, int64, error) {
	base := func() *gorm.DB {
		return r.DB.WithContext(ctx).Model(&models.User{}).Where("role = ?", role)
	}
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	q := base().Order("created_at DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *GormRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		for _, m := range []any{&models.RefreshToken{}, &models.CartItem{}, &models.Favorite{}} {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Refresh tokens

func (r *GormRepo) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func (r *GormRepo) GetRefreshToken(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	if err := r.DB.WithContext(ctx).First(&t, "jti = ?", jti).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, jti string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("jti = ? AND revoked = ?", jti, false).
		Update("revoked", true)
	return res.RowsAffected > 0, res.Error
}

func (r *GormRepo) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

// Settings

func (r *GormRepo) GetOrCreateSettings(ctx context.Context) (*models.Settings, error) {
	s := models.Settings{
		ID:         models.SettingsID,
		Promotions: []models.Promotion{},
		Policies:   []models.Policy{},
	}
	err := r.DB.WithContext(ctx).
		Where(models.Settings{ID: models.SettingsID}).
		FirstOrCreate(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) SaveSettings(ctx context.Context, s *models.Settings) error {
	s.ID = models.SettingsID
	return r.DB.WithContext(ctx).Save(s).Error
}
