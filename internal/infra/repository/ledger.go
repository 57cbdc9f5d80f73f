package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/where/internal/domain"
	"github.com/totegamma/where/internal/infra/database/models"
	"github.com/totegamma/where/internal/usecase"
)

const likeCountTTL = 60 // seconds

type LedgerRepository struct {
	db  *gorm.DB
	mc  *memcache.Client
	log *zap.Logger
}

// NewLedgerRepository returns a ledger backed by postgres. mc may be nil, in
// which case like counts are always read from the database.
func NewLedgerRepository(db *gorm.DB, mc *memcache.Client, log *zap.Logger) *LedgerRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &LedgerRepository{db: db, mc: mc, log: log}
}

func (r *LedgerRepository) Like(ctx context.Context, like domain.ImageLike, beneficiary string, points float64) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.ImageLike{
			UserID:        like.UserID,
			ImageURL:      like.ImageURL,
			LocationID:    like.LocationID,
			BeneficiaryID: beneficiary,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		added = true

		if beneficiary == "" {
			return nil
		}
		return addPoints(tx, beneficiary, points)
	})
	if err != nil {
		return false, err
	}
	if added {
		r.invalidate(like.ImageURL)
	}
	return added, nil
}

func (r *LedgerRepository) Unlike(ctx context.Context, userID, imageURL string, points float64) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.ImageLike
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND image_url = ?", userID, imageURL).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Where("user_id = ? AND image_url = ?", userID, imageURL).
			Delete(&models.ImageLike{}).Error; err != nil {
			return err
		}
		removed = true

		if row.BeneficiaryID == "" {
			return nil
		}
		return tx.Model(&models.PointBalance{}).
			Where("user_id = ?", row.BeneficiaryID).
			Update("points", gorm.Expr("GREATEST(points - ?, 0)", points)).Error
	})
	if err != nil {
		return false, err
	}
	if removed {
		r.invalidate(imageURL)
	}
	return removed, nil
}

func (r *LedgerRepository) IsLiked(ctx context.Context, userID, imageURL string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ImageLike{}).
		Where("user_id = ? AND image_url = ?", userID, imageURL).
		Count(&count).Error
	return count > 0, err
}

func (r *LedgerRepository) CountLikes(ctx context.Context, imageURL string) (int64, error) {
	key := likeCountKey(imageURL)
	if r.mc != nil {
		item, err := r.mc.Get(key)
		if err == nil {
			count, perr := strconv.ParseInt(string(item.Value), 10, 64)
			if perr == nil {
				return count, nil
			}
		} else if !errors.Is(err, memcache.ErrCacheMiss) {
			r.log.Debug("memcached get failed", zap.Error(err))
		}
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ImageLike{}).
		Where("image_url = ?", imageURL).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	if r.mc != nil {
		err = r.mc.Set(&memcache.Item{
			Key:        key,
			Value:      []byte(strconv.FormatInt(count, 10)),
			Expiration: likeCountTTL,
		})
		if err != nil {
			r.log.Debug("memcached set failed", zap.Error(err))
		}
	}
	return count, nil
}

func (r *LedgerRepository) CountReferrals(ctx context.Context, referrerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Where("referrer_id = ?", referrerID).
		Count(&count).Error
	return count, err
}

func (r *LedgerRepository) Points(ctx context.Context, userID string) (float64, error) {
	return pointsOf(ctx, r.db, userID)
}

func (r *LedgerRepository) invalidate(imageURL string) {
	if r.mc == nil {
		return
	}
	err := r.mc.Delete(likeCountKey(imageURL))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		r.log.Warn("failed to invalidate like count", zap.String("imageUrl", imageURL), zap.Error(err))
	}
}

func addPoints(tx *gorm.DB, userID string, points float64) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"points": gorm.Expr("GREATEST(point_balances.points + ?, 0)", points),
		}),
	}).Create(&models.PointBalance{UserID: userID, Points: points}).Error
}

func pointsOf(ctx context.Context, db *gorm.DB, userID string) (float64, error) {
	var balance models.PointBalance
	err := db.WithContext(ctx).Where("user_id = ?", userID).Take(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance.Points, nil
}

// image urls can exceed memcached's key limits, so keys are hashed.
func likeCountKey(imageURL string) string {
	return fmt.Sprintf("where:likes:%016x", xxh3.HashString(imageURL))
}

var _ usecase.LedgerRepository = (*LedgerRepository)(nil)
