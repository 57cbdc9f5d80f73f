package domain

const (
	RequesterIdCtxKey       = "where-requesterId"
	RequesterUsernameCtxKey = "where-requesterUsername"
)

const (
	EventLocationCreated = "location.created"
	EventLocationUpdated = "location.updated"
	EventCommentAdded    = "comment.added"
	EventRatingSubmitted = "rating.submitted"
	EventImageLiked      = "image.liked"
	EventImageUnliked    = "image.unliked"
)

// SignalChannel is the redis channel store events are published on.
const SignalChannel = "where:events"

// Event is a store change pushed to realtime subscribers.
type Event struct {
	Type       string `json:"type"`
	LocationID string `json:"locationId,omitempty"`
	CID        string `json:"cid,omitempty"`
	Payload    any    `json:"payload,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}
