package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/totegamma/where/internal/domain"
	"github.com/totegamma/where/internal/infra/database/models"
	"github.com/totegamma/where/internal/usecase"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user domain.User, creds *domain.Credentials, referrerID *string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.User{
			ID:           user.ID,
			Username:     user.Username,
			AuthProvider: string(user.AuthProvider),
			ProfileImage: user.ProfileImage,
			ReferralCode: user.ReferralCode,
		}
		if creds != nil {
			row.PasswordHash = creds.PasswordHash
		}

		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrConflict
			}
			return err
		}

		if referrerID == nil {
			return nil
		}
		return tx.Create(&models.Referral{
			ReferrerID: *referrerID,
			ReferredID: user.ID,
		}).Error
	})
}

func (r *UserRepository) Get(ctx context.Context, id string) (domain.User, error) {
	var row models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		return domain.User{}, translate(err, "user")
	}
	return r.withPoints(ctx, row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (domain.User, domain.Credentials, error) {
	var row models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).Take(&row).Error
	if err != nil {
		return domain.User{}, domain.Credentials{}, translate(err, "user")
	}
	user, err := r.withPoints(ctx, row)
	if err != nil {
		return domain.User{}, domain.Credentials{}, err
	}
	return user, domain.Credentials{UserID: row.ID, PasswordHash: row.PasswordHash}, nil
}

func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (domain.User, error) {
	var row models.User
	err := r.db.WithContext(ctx).Where("referral_code = ?", code).Take(&row).Error
	if err != nil {
		return domain.User{}, translate(err, "user")
	}
	return userFromModel(row), nil
}

func (r *UserRepository) withPoints(ctx context.Context, row models.User) (domain.User, error) {
	user := userFromModel(row)
	points, err := pointsOf(ctx, r.db, row.ID)
	if err != nil {
		return domain.User{}, err
	}
	user.Points = points
	return user, nil
}

func userFromModel(m models.User) domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		AuthProvider: domain.AuthProvider(m.AuthProvider),
		ProfileImage: m.ProfileImage,
		ReferralCode: m.ReferralCode,
	}
}

func translate(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFoundError{Resource: resource}
	}
	return err
}

var _ usecase.UserRepository = (*UserRepository)(nil)
