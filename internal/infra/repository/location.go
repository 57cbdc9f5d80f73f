package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/where/internal/domain"
	"github.com/totegamma/where/internal/infra/database/models"
	"github.com/totegamma/where/internal/usecase"
)

type LocationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) List(ctx context.Context) ([]domain.Location, error) {
	var rows []models.Location
	err := r.db.WithContext(ctx).
		Preload("Contributors", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	locations := make([]domain.Location, 0, len(rows))
	for _, row := range rows {
		locations = append(locations, locationFromModel(row))
	}
	return locations, nil
}

// Save writes the location row and replaces its contributor list. Comments are
// append-only and written through AddComment.
func (r *LocationRepository) Save(ctx context.Context, location domain.Location) error {
	row := locationToModel(location)
	contributors := row.Contributors
	row.Contributors = nil
	row.Comments = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}

		if err := tx.Where("location_id = ?", location.ID).Delete(&models.Contributor{}).Error; err != nil {
			return err
		}
		if len(contributors) == 0 {
			return nil
		}
		return tx.Create(&contributors).Error
	})
}

func (r *LocationRepository) AddComment(ctx context.Context, locationID string, comment domain.Comment) error {
	row := models.Comment{
		ID:          comment.ID,
		LocationID:  locationID,
		UserID:      comment.UserID,
		Username:    comment.Username,
		IsAnonymous: comment.IsAnonymous,
		Text:        comment.Text,
		CreatedAt:   comment.CreatedAt,
		CID:         comment.CID,
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return domain.NotFoundError{Resource: "location", ID: locationID}
	}
	return err
}

func locationToModel(l domain.Location) models.Location {
	contributors := make([]models.Contributor, 0, len(l.Contributors))
	for i, c := range l.Contributors {
		contributors = append(contributors, models.Contributor{
			LocationID:   l.ID,
			Position:     i,
			UserID:       c.UserID,
			Username:     c.Username,
			IsAnonymous:  c.IsAnonymous,
			Contribution: string(c.Contribution),
			CreatedAt:    c.CreatedAt,
		})
	}

	return models.Location{
		ID:                l.ID,
		Name:              l.Name,
		Description:       l.Description,
		Latitude:          l.Latitude,
		Longitude:         l.Longitude,
		Images:            l.Images,
		AllImages:         l.AllImages,
		Security:          l.Ratings.Security,
		Violence:          l.Ratings.Violence,
		Welcoming:         l.Ratings.Welcoming,
		StreetFood:        l.Ratings.StreetFood,
		Restaurants:       l.Ratings.Restaurants,
		Pickpocketing:     l.Ratings.Pickpocketing,
		QualityOfLife:     l.Ratings.QualityOfLife,
		RatingCount:       l.RatingCount,
		CreatedBy:         l.CreatedBy,
		CreatedAt:         l.CreatedAt,
		Verified:          l.Verified,
		VerificationCount: l.VerificationCount,
		CID:               l.CID,
		Contributors:      contributors,
	}
}

func locationFromModel(m models.Location) domain.Location {
	contributors := make([]domain.Contributor, 0, len(m.Contributors))
	for _, c := range m.Contributors {
		contributors = append(contributors, domain.Contributor{
			UserID:       c.UserID,
			Username:     c.Username,
			IsAnonymous:  c.IsAnonymous,
			Contribution: domain.ContributionKind(c.Contribution),
			CreatedAt:    c.CreatedAt,
		})
	}

	comments := make([]domain.Comment, 0, len(m.Comments))
	for _, c := range m.Comments {
		comments = append(comments, domain.Comment{
			ID:          c.ID,
			UserID:      c.UserID,
			Username:    c.Username,
			IsAnonymous: c.IsAnonymous,
			Text:        c.Text,
			CreatedAt:   c.CreatedAt,
			CID:         c.CID,
		})
	}

	images := []string(m.Images)
	if images == nil {
		images = []string{}
	}
	allImages := []string(m.AllImages)
	if allImages == nil {
		allImages = []string{}
	}

	return domain.Location{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
		Images:      images,
		AllImages:   allImages,
		Ratings: domain.Ratings{
			Security:      m.Security,
			Violence:      m.Violence,
			Welcoming:     m.Welcoming,
			StreetFood:    m.StreetFood,
			Restaurants:   m.Restaurants,
			Pickpocketing: m.Pickpocketing,
			QualityOfLife: m.QualityOfLife,
		},
		RatingCount:       m.RatingCount,
		Comments:          comments,
		CreatedBy:         m.CreatedBy,
		CreatedAt:         m.CreatedAt,
		Verified:          m.Verified,
		VerificationCount: m.VerificationCount,
		Contributors:      contributors,
		CID:               m.CID,
	}
}

var _ usecase.LocationRepository = (*LocationRepository)(nil)
