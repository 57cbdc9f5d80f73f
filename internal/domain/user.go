package domain

import "time"

// AuthProvider identifies how a user signed in.
type AuthProvider string

const (
	AuthProviderEmail     AuthProvider = "email"
	AuthProviderGoogle    AuthProvider = "google"
	AuthProviderFarcaster AuthProvider = "farcaster"
	AuthProviderGuest     AuthProvider = "guest"
)

// User represents an account without persistence concerns.
type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	AuthProvider AuthProvider `json:"authProvider"`
	Points       float64      `json:"points"`
	ProfileImage *string      `json:"profileImage,omitempty"`
	ReferralCode string       `json:"referralCode,omitempty"`
}

// Credentials is a stored password hash for email accounts.
type Credentials struct {
	UserID       string
	PasswordHash string
}

// ImageLike marks one user's like of one image. The set key is (UserID, ImageURL).
type ImageLike struct {
	UserID     string    `json:"userId"`
	LocationID string    `json:"locationId"`
	ImageURL   string    `json:"imageUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Referral links a referring user to the user they brought in.
type Referral struct {
	ReferrerID string    `json:"referrerId"`
	ReferredID string    `json:"referredId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// LikePoints is awarded to a location creator per image like.
const LikePoints = 0.1
