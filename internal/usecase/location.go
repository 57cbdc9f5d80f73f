package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/totegamma/where/internal/domain"
)

var tracer = otel.Tracer("usecase")

// LocationResult is a location together with the blob it was stored as.
type LocationResult struct {
	Location   domain.Location `json:"location"`
	CID        string          `json:"cid"`
	GatewayURL string          `json:"gatewayUrl"`
}

// CommentResult is a comment together with the blob it was stored as.
type CommentResult struct {
	Comment    domain.Comment `json:"comment"`
	CID        string         `json:"cid"`
	GatewayURL string         `json:"gatewayUrl"`
}

// LocationStore is the in-process collection of locations. Every mutation
// uploads first and only touches the collection once the upload succeeded.
type LocationStore struct {
	mu        sync.RWMutex
	locations []domain.Location
	index     map[string]int
	comments  map[string]struct{}

	repo   LocationRepository
	blobs  BlobStore
	signal Publisher
	log    *zap.Logger
	now    func() time.Time
}

// NewLocationStore builds an empty store. signal may be an untyped nil to
// disable event publishing.
func NewLocationStore(repo LocationRepository, blobs BlobStore, signal Publisher, log *zap.Logger) *LocationStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocationStore{
		index:    make(map[string]int),
		comments: make(map[string]struct{}),
		repo:     repo,
		blobs:    blobs,
		signal:   signal,
		log:      log,
		now:      time.Now,
	}
}

// Fetch replaces the collection with the persisted locations. The collection is
// left as is when loading fails. Mutations wait until loading is done.
func (s *LocationStore) Fetch(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Location.Usecase.Fetch")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	locations, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "fetch locations")
	}

	index := make(map[string]int, len(locations))
	comments := make(map[string]struct{})
	for i, l := range locations {
		index[l.ID] = i
		for _, c := range l.Comments {
			comments[c.ID] = struct{}{}
		}
	}

	s.locations = locations
	s.index = index
	s.comments = comments

	span.SetAttributes(attribute.Int("count", len(locations)))
	s.log.Debug("locations fetched", zap.Int("count", len(locations)))
	return nil
}

func (s *LocationStore) Create(ctx context.Context, draft domain.LocationDraft) (LocationResult, error) {
	ctx, span := tracer.Start(ctx, "Location.Usecase.Create")
	defer span.End()

	if err := draft.Validate(); err != nil {
		return LocationResult{}, err
	}

	images := append([]string{}, draft.Images...)

	s.mu.Lock()
	now := s.now()
	createdAt := domain.Millis(now)
	id := domain.NewLocationID(now)
	for {
		if _, taken := s.index[id]; !taken {
			break
		}
		now = now.Add(time.Millisecond)
		id = domain.NewLocationID(now)
	}

	location := domain.Location{
		ID:           id,
		Name:         draft.Name,
		Description:  draft.Description,
		Latitude:     draft.Latitude,
		Longitude:    draft.Longitude,
		Images:       images,
		AllImages:    append([]string{}, images...),
		Ratings:      domain.Ratings{},
		RatingCount:  0,
		Comments:     []domain.Comment{},
		CreatedBy:    draft.CreatedBy,
		CreatedAt:    createdAt,
		Verified:     false,
		Contributors: []domain.Contributor{{
			UserID:       draft.CreatedBy,
			Username:     draft.Username,
			IsAnonymous:  draft.IsAnonymous,
			Contribution: domain.ContributionImage,
			CreatedAt:    createdAt,
		}},
	}

	blob, err := s.commit(ctx, location, -1)
	s.mu.Unlock()
	if err != nil {
		span.RecordError(err)
		return LocationResult{}, err
	}
	span.SetAttributes(attribute.String("locationId", id), attribute.String("cid", blob.CID))

	location.CID = blob.CID
	s.log.Info("location created", zap.String("id", id), zap.String("cid", blob.CID))
	s.publish(ctx, domain.Event{Type: domain.EventLocationCreated, LocationID: id, CID: blob.CID, Payload: location})

	return LocationResult{Location: location, CID: blob.CID, GatewayURL: blob.GatewayURL}, nil
}

func (s *LocationStore) AddComment(ctx context.Context, locationID string, comment domain.Comment) (CommentResult, error) {
	ctx, span := tracer.Start(ctx, "Location.Usecase.AddComment")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[locationID]
	if !ok {
		return CommentResult{}, domain.NotFoundError{Resource: "location", ID: locationID}
	}

	if comment.ID == "" {
		now := s.now()
		comment.ID = domain.NewCommentID(now)
		for {
			if _, taken := s.comments[comment.ID]; !taken {
				break
			}
			now = now.Add(time.Millisecond)
			comment.ID = domain.NewCommentID(now)
		}
	} else if _, taken := s.comments[comment.ID]; taken {
		return CommentResult{}, errors.Wrapf(domain.ErrConflict, "comment %s", comment.ID)
	}
	if comment.CreatedAt == 0 {
		comment.CreatedAt = domain.Millis(s.now())
	}
	if comment.IsAnonymous {
		comment.Username = nil
	}
	if err := comment.Validate(); err != nil {
		return CommentResult{}, err
	}

	blob, err := uploadRecord(ctx, s.blobs, comment)
	if err != nil {
		span.RecordError(err)
		return CommentResult{}, errors.Wrap(err, "upload comment")
	}
	comment.CID = blob.CID

	if err := s.repo.AddComment(ctx, locationID, comment); err != nil {
		span.RecordError(err)
		return CommentResult{}, errors.Wrap(err, "save comment")
	}

	location := s.locations[idx].Clone()
	location.Comments = append(location.Comments, comment)
	s.locations[idx] = location
	s.comments[comment.ID] = struct{}{}

	s.log.Info("comment added", zap.String("locationId", locationID), zap.String("commentId", comment.ID), zap.String("cid", blob.CID))
	s.publish(ctx, domain.Event{Type: domain.EventCommentAdded, LocationID: locationID, CID: blob.CID, Payload: comment})

	return CommentResult{Comment: comment, CID: blob.CID, GatewayURL: blob.GatewayURL}, nil
}

func (s *LocationStore) SubmitRating(ctx context.Context, locationID string, input domain.RatingInput) (LocationResult, error) {
	ctx, span := tracer.Start(ctx, "Location.Usecase.SubmitRating")
	defer span.End()

	rating, err := input.Ratings()
	if err != nil {
		return LocationResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[locationID]
	if !ok {
		return LocationResult{}, domain.NotFoundError{Resource: "location", ID: locationID}
	}

	location := s.locations[idx].Clone()
	location.Ratings = location.Ratings.Fold(location.RatingCount, rating)
	location.RatingCount++
	if input.UserID != "" {
		username := input.Username
		if input.IsAnonymous {
			username = nil
		}
		location.Contributors = append(location.Contributors, domain.Contributor{
			UserID:       input.UserID,
			Username:     username,
			IsAnonymous:  input.IsAnonymous,
			Contribution: domain.ContributionRating,
			CreatedAt:    domain.Millis(s.now()),
		})
	}

	blob, err := s.commit(ctx, location, idx)
	if err != nil {
		span.RecordError(err)
		return LocationResult{}, err
	}
	location.CID = blob.CID

	s.publish(ctx, domain.Event{Type: domain.EventRatingSubmitted, LocationID: locationID, CID: blob.CID, Payload: location.Ratings})

	return LocationResult{Location: location, CID: blob.CID, GatewayURL: blob.GatewayURL}, nil
}

// AddImages appends new image URIs to a location. URIs already present are skipped.
func (s *LocationStore) AddImages(ctx context.Context, locationID string, contributor domain.Contributor, images []string) (LocationResult, error) {
	ctx, span := tracer.Start(ctx, "Location.Usecase.AddImages")
	defer span.End()

	if len(images) == 0 {
		return LocationResult{}, domain.ValidationError{Field: "images", Reason: "must not be empty"}
	}
	if contributor.UserID == "" {
		return LocationResult{}, domain.ValidationError{Field: "userId", Reason: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[locationID]
	if !ok {
		return LocationResult{}, domain.NotFoundError{Resource: "location", ID: locationID}
	}

	location := s.locations[idx].Clone()
	known := make(map[string]struct{}, len(location.AllImages))
	for _, img := range location.AllImages {
		known[img] = struct{}{}
	}
	added := 0
	for _, img := range images {
		if img == "" {
			continue
		}
		if _, dup := known[img]; dup {
			continue
		}
		known[img] = struct{}{}
		location.Images = append(location.Images, img)
		location.AllImages = append(location.AllImages, img)
		added++
	}
	if added == 0 {
		return LocationResult{
			Location:   location,
			CID:        location.CID,
			GatewayURL: s.GatewayURL(location.CID),
		}, nil
	}

	if contributor.IsAnonymous {
		contributor.Username = nil
	}
	contributor.Contribution = domain.ContributionImage
	contributor.CreatedAt = domain.Millis(s.now())
	location.Contributors = append(location.Contributors, contributor)

	blob, err := s.commit(ctx, location, idx)
	if err != nil {
		span.RecordError(err)
		return LocationResult{}, err
	}
	location.CID = blob.CID

	s.publish(ctx, domain.Event{Type: domain.EventLocationUpdated, LocationID: locationID, CID: blob.CID, Payload: location})

	return LocationResult{Location: location, CID: blob.CID, GatewayURL: blob.GatewayURL}, nil
}

// commit uploads the full location blob, persists it and places it in the
// collection at idx, or appends it when idx is negative. Callers hold s.mu.
func (s *LocationStore) commit(ctx context.Context, location domain.Location, idx int) (domain.Blob, error) {
	blob, err := uploadRecord(ctx, s.blobs, location)
	if err != nil {
		return domain.Blob{}, errors.Wrap(err, "upload location")
	}
	location.CID = blob.CID

	if err := s.repo.Save(ctx, location); err != nil {
		return domain.Blob{}, errors.Wrap(err, "save location")
	}

	if idx < 0 {
		s.index[location.ID] = len(s.locations)
		s.locations = append(s.locations, location)
	} else {
		s.locations[idx] = location
	}
	return blob, nil
}

func (s *LocationStore) publish(ctx context.Context, event domain.Event) {
	if s.signal == nil {
		return
	}
	event.Timestamp = domain.Millis(s.now())
	if err := s.signal.Publish(ctx, domain.SignalChannel, event); err != nil {
		s.log.Warn("failed to publish event", zap.String("type", event.Type), zap.Error(err))
	}
}

func (s *LocationStore) Get(locationID string) (domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[locationID]
	if !ok {
		return domain.Location{}, domain.NotFoundError{Resource: "location", ID: locationID}
	}
	return s.locations[idx].Clone(), nil
}

func (s *LocationStore) List() []domain.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Location, 0, len(s.locations))
	for _, l := range s.locations {
		result = append(result, l.Clone())
	}
	return result
}

// ByCreator returns the locations created by userID.
func (s *LocationStore) ByCreator(userID string) []domain.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Location
	for _, l := range s.locations {
		if l.CreatedBy == userID {
			result = append(result, l.Clone())
		}
	}
	return result
}

func (s *LocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.locations)
}

// GatewayURL exposes the public URL for a stored blob.
func (s *LocationStore) GatewayURL(cid string) string {
	if cid == "" {
		return ""
	}
	return s.blobs.GatewayURL(cid)
}
