package usecase

import (
	"context"

	"github.com/totegamma/where/internal/domain"
)

// LocationRepository is the durable index of locations and their comments.
type LocationRepository interface {
	List(ctx context.Context) ([]domain.Location, error)
	Save(ctx context.Context, location domain.Location) error
	AddComment(ctx context.Context, locationID string, comment domain.Comment) error
}

// BlobStore uploads named JSON blobs to the content-addressed gateway.
type BlobStore interface {
	Upload(ctx context.Context, filename string, body []byte) (domain.Blob, error)
	GatewayURL(cid string) string
}

// LedgerRepository persists likes, referrals and point balances.
type LedgerRepository interface {
	// Like inserts the like and credits points to beneficiary when the like is new.
	Like(ctx context.Context, like domain.ImageLike, beneficiary string, points float64) (bool, error)
	// Unlike removes the like and debits the points it earned when it existed.
	Unlike(ctx context.Context, userID, imageURL string, points float64) (bool, error)
	IsLiked(ctx context.Context, userID, imageURL string) (bool, error)
	CountLikes(ctx context.Context, imageURL string) (int64, error)
	CountReferrals(ctx context.Context, referrerID string) (int64, error)
	Points(ctx context.Context, userID string) (float64, error)
}

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, user domain.User, creds *domain.Credentials, referrerID *string) error
	Get(ctx context.Context, id string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, domain.Credentials, error)
	GetByReferralCode(ctx context.Context, code string) (domain.User, error)
}

// Publisher pushes store events to realtime subscribers.
type Publisher interface {
	Publish(ctx context.Context, channel string, event domain.Event) error
}

// Authenticator hashes passwords and issues bearer tokens.
type Authenticator interface {
	HashPassword(password string) (string, error)
	CheckPassword(hash, password string) bool
	IssueToken(user domain.User) (string, error)
}
