package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/totegamma/where/internal/domain"
)

type SignalService struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewSignalService(redisClient *redis.Client, log *zap.Logger) *SignalService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SignalService{
		rdb: redisClient,
		log: log,
	}
}

func (s *SignalService) Publish(ctx context.Context, channel string, event domain.Event) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, channel, jsonstr).Err()
	if err != nil {
		return err

	}

	return nil
}

// Realtime forwards events for the given location ids (all locations when
// filter is empty) to output until ctx is done. Filters can be replaced by
// sending on input.
func (s *SignalService) Realtime(ctx context.Context, input <-chan []string, output chan<- domain.Event) {
	pubsub := s.rdb.Subscribe(ctx, domain.SignalChannel)
	defer pubsub.Close()

	messages := pubsub.Channel()
	filter := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			return
		case ids, ok := <-input:
			if !ok {
				return
			}
			filter = make(map[string]struct{}, len(ids))
			for _, id := range ids {
				if id != "" {
					filter[id] = struct{}{}
				}
			}
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.log.Warn("malformed event", zap.Error(err))
				continue
			}
			if !matches(filter, event) {
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func matches(filter map[string]struct{}, event domain.Event) bool {
	if len(filter) == 0 {
		return true
	}
	_, ok := filter[event.LocationID]
	return ok
}
