package domain

import (
	"strconv"
	"time"
)

// ContributionKind names what a contributor added to a location.
type ContributionKind string

const (
	ContributionImage   ContributionKind = "image"
	ContributionRating  ContributionKind = "rating"
	ContributionComment ContributionKind = "comment"
)

// Location is a user-submitted place with its ratings and discussion.
type Location struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Description       string        `json:"description"`
	Latitude          float64       `json:"latitude"`
	Longitude         float64       `json:"longitude"`
	Images            []string      `json:"images"`
	AllImages         []string      `json:"allImages"`
	Ratings           Ratings       `json:"ratings"`
	RatingCount       int           `json:"ratingCount"`
	Comments          []Comment     `json:"comments"`
	CreatedBy         string        `json:"createdBy"`
	CreatedAt         int64         `json:"createdAt"`
	Verified          bool          `json:"verified"`
	VerificationCount int           `json:"verificationCount"`
	Contributors      []Contributor `json:"contributors"`

	// CID of the latest uploaded blob. Not part of the blob itself.
	CID string `json:"-"`
}

func (l Location) UploadKind() string { return "location" }
func (l Location) UploadID() string   { return l.ID }

// Clone returns a deep copy so callers can mutate it without touching the original.
func (l Location) Clone() Location {
	c := l
	c.Images = append([]string(nil), l.Images...)
	c.AllImages = append([]string(nil), l.AllImages...)
	c.Comments = append([]Comment(nil), l.Comments...)
	c.Contributors = append([]Contributor(nil), l.Contributors...)
	return c
}

// LocationDraft is the caller-supplied part of a new location.
type LocationDraft struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Images      []string `json:"images"`
	CreatedBy   string   `json:"createdBy"`
	IsAnonymous bool     `json:"isAnonymous"`
	Username    *string  `json:"username"`
}

func (d LocationDraft) Validate() error {
	if d.Name == "" {
		return ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if d.CreatedBy == "" {
		return ValidationError{Field: "createdBy", Reason: "must not be empty"}
	}
	if d.Latitude < -90 || d.Latitude > 90 {
		return ValidationError{Field: "latitude", Reason: "must be within [-90, 90]"}
	}
	if d.Longitude < -180 || d.Longitude > 180 {
		return ValidationError{Field: "longitude", Reason: "must be within [-180, 180]"}
	}
	return nil
}

// Comment is an append-only remark on a location.
type Comment struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Username    *string `json:"username"`
	IsAnonymous bool    `json:"isAnonymous"`
	Text        string  `json:"text"`
	CreatedAt   int64   `json:"createdAt"`

	CID string `json:"-"`
}

func (c Comment) UploadKind() string { return "comment" }
func (c Comment) UploadID() string   { return c.ID }

func (c Comment) Validate() error {
	if c.UserID == "" {
		return ValidationError{Field: "userId", Reason: "must not be empty"}
	}
	if c.Text == "" {
		return ValidationError{Field: "text", Reason: "must not be empty"}
	}
	return nil
}

// Contributor records who added what to a location.
type Contributor struct {
	UserID       string           `json:"userId"`
	Username     *string          `json:"username"`
	IsAnonymous  bool             `json:"isAnonymous"`
	Contribution ContributionKind `json:"contribution"`
	CreatedAt    int64            `json:"createdAt"`
}

// Uploadable is any record that can be stored as a named JSON blob.
type Uploadable interface {
	UploadKind() string
	UploadID() string
}

// UploadFileName is the blob name used on the storage gateway.
func UploadFileName(u Uploadable) string {
	return u.UploadKind() + "-" + u.UploadID() + ".json"
}

// Blob is a stored JSON document on the gateway.
type Blob struct {
	CID        string `json:"cid"`
	GatewayURL string `json:"gatewayUrl"`
}

// Millis converts t to epoch milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

func NewLocationID(t time.Time) string {
	return "loc_" + strconv.FormatInt(Millis(t), 10)
}

func NewCommentID(t time.Time) string {
	return "com_" + strconv.FormatInt(Millis(t), 10)
}
