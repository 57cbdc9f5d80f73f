package usecase

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/totegamma/where/internal/domain"
)

// LocationLookup resolves a location by id.
type LocationLookup interface {
	Get(locationID string) (domain.Location, error)
}

// Ledger tracks image likes, referral counts and point balances.
type Ledger struct {
	repo      LedgerRepository
	locations LocationLookup
	signal    Publisher
	log       *zap.Logger
}

// NewLedger builds a ledger. signal may be an untyped nil to disable event
// publishing.
func NewLedger(repo LedgerRepository, locations LocationLookup, signal Publisher, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{repo: repo, locations: locations, signal: signal, log: log}
}

// LikeImage adds userID's like of imageURL and credits the location creator.
// Liking the same image again changes nothing.
func (l *Ledger) LikeImage(ctx context.Context, userID, locationID, imageURL string) error {
	ctx, span := tracer.Start(ctx, "Ledger.Usecase.LikeImage")
	defer span.End()

	if err := validateLike(userID, imageURL); err != nil {
		return err
	}

	location, err := l.locations.Get(locationID)
	if err != nil {
		return err
	}

	like := domain.ImageLike{
		UserID:     userID,
		LocationID: locationID,
		ImageURL:   imageURL,
		CreatedAt:  time.Now(),
	}
	added, err := l.repo.Like(ctx, like, location.CreatedBy, domain.LikePoints)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "like image")
	}
	if added {
		l.publish(ctx, domain.Event{Type: domain.EventImageLiked, LocationID: locationID, Payload: like})
	}
	return nil
}

// UnlikeImage removes the like and takes back the points it earned. Removing a
// like that does not exist is a no-op.
func (l *Ledger) UnlikeImage(ctx context.Context, userID, locationID, imageURL string) error {
	ctx, span := tracer.Start(ctx, "Ledger.Usecase.UnlikeImage")
	defer span.End()

	if err := validateLike(userID, imageURL); err != nil {
		return err
	}

	removed, err := l.repo.Unlike(ctx, userID, imageURL, domain.LikePoints)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "unlike image")
	}
	if removed {
		l.publish(ctx, domain.Event{
			Type:       domain.EventImageUnliked,
			LocationID: locationID,
			Payload:    domain.ImageLike{UserID: userID, LocationID: locationID, ImageURL: imageURL},
		})
	}
	return nil
}

func (l *Ledger) IsImageLikedByUser(ctx context.Context, userID, imageURL string) (bool, error) {
	return l.repo.IsLiked(ctx, userID, imageURL)
}

func (l *Ledger) ImageLikes(ctx context.Context, imageURL string) (int64, error) {
	return l.repo.CountLikes(ctx, imageURL)
}

func (l *Ledger) ReferralCount(ctx context.Context, userID string) (int64, error) {
	return l.repo.CountReferrals(ctx, userID)
}

func (l *Ledger) Points(ctx context.Context, userID string) (float64, error) {
	return l.repo.Points(ctx, userID)
}

func (l *Ledger) publish(ctx context.Context, event domain.Event) {
	if l.signal == nil {
		return
	}
	event.Timestamp = domain.Millis(time.Now())
	if err := l.signal.Publish(ctx, domain.SignalChannel, event); err != nil {
		l.log.Warn("failed to publish event", zap.String("type", event.Type), zap.Error(err))
	}
}

func validateLike(userID, imageURL string) error {
	if userID == "" {
		return domain.ValidationError{Field: "userId", Reason: "must not be empty"}
	}
	if imageURL == "" {
		return domain.ValidationError{Field: "imageUrl", Reason: "must not be empty"}
	}
	return nil
}
