package stores

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NASAboy342/Spendbook/internal/api"
	"github.com/NASAboy342/Spendbook/internal/core"
	"github.com/NASAboy342/Spendbook/internal/log"
	"github.com/NASAboy342/Spendbook/internal/session"
)

// TopicAPI is the slice of the remote API the topic store uses.
type TopicAPI interface {
	GetTrackingTopics(ctx context.Context, username string) (api.GetTopicResponse, error)
	CreateTrackingTopic(ctx context.Context, req api.CreateTopicRequest) (api.Topic, error)
	UpdateTrackingTopic(ctx context.Context, req api.UpdateTopicRequest) (api.Topic, error)
}

// TopicPatch carries the fields an update may change. Nil fields are left
// as they are on the server.
type TopicPatch struct {
	Name         *string
	TargetAmount *decimal.Decimal
	TargetDate   *time.Time
	Status       *core.TopicStatus
}

type TopicStore struct {
	mu      sync.Mutex
	items   []core.Topic
	lastErr error

	client  TopicAPI
	session Identity
	logger  *log.Logger
}

func NewTopicStore(client TopicAPI, sess Identity, logger *log.Logger) *TopicStore {
	return &TopicStore{
		client:  client,
		session: sess,
		logger:  logger.WithComponent(log.ComponentTopics),
	}
}

// Refresh replaces the collection with the server's current topics.
func (s *TopicStore) Refresh(ctx context.Context) ([]core.Topic, error) {
	username := s.session.Username()
	if username == "" {
		return nil, s.fail(session.ErrNotAuthenticated)
	}

	resp, err := s.client.GetTrackingTopics(ctx, username)
	if err != nil {
		return nil, s.fail(&FetchError{
			Op:      log.OpRefresh,
			Message: userMessage(err, "Failed to load topics"),
			Err:     err,
		})
	}

	items := make([]core.Topic, 0, len(resp.Topics))
	for _, t := range resp.Topics {
		items = append(items, t.Domain())
	}

	s.mu.Lock()
	s.items = items
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Topics refreshed", log.FieldCount, len(items))
	return s.Topics(), nil
}

func (s *TopicStore) Create(ctx context.Context, name string, targetAmount decimal.Decimal, targetDate time.Time) (core.Topic, error) {
	username := s.session.Username()
	if username == "" {
		return core.Topic{}, s.fail(session.ErrNotAuthenticated)
	}
	if err := core.ValidateName(name); err != nil {
		return core.Topic{}, s.fail(err)
	}
	if !targetAmount.IsPositive() {
		return core.Topic{}, s.fail(core.ErrInvalidAmount)
	}
	if err := core.ValidateTargetDate(targetDate); err != nil {
		return core.Topic{}, s.fail(err)
	}

	created, err := s.client.CreateTrackingTopic(ctx, api.CreateTopicRequest{
		Username:      username,
		TopicName:     name,
		TargetAmount:  targetAmount,
		UTCTargetDate: targetDate.UTC(),
		Currency:      defaultCurrency,
	})
	if err != nil {
		return core.Topic{}, s.fail(&OpError{
			Op:      log.OpCreate,
			Message: userMessage(err, "Failed to create topic"),
			Err:     err,
		})
	}

	s.logger.InfoContext(ctx, "Topic created",
		log.FieldTopicID, created.ID,
		log.FieldOperation, log.OpCreate)

	return s.readBack(ctx, created.Domain()), nil
}

func (s *TopicStore) Update(ctx context.Context, topicID int64, patch TopicPatch) (core.Topic, error) {
	username := s.session.Username()
	if username == "" {
		return core.Topic{}, s.fail(session.ErrNotAuthenticated)
	}
	if patch.Name != nil {
		if err := core.ValidateName(*patch.Name); err != nil {
			return core.Topic{}, s.fail(err)
		}
	}
	if patch.TargetAmount != nil && !patch.TargetAmount.IsPositive() {
		return core.Topic{}, s.fail(core.ErrInvalidAmount)
	}

	req := api.UpdateTopicRequest{
		Username:        username,
		TrackingTopicID: topicID,
		NewName:         patch.Name,
		NewTargetAmount: patch.TargetAmount,
	}
	if patch.TargetDate != nil {
		utc := patch.TargetDate.UTC()
		req.NewUTCTargetDate = &utc
	}
	if patch.Status != nil {
		code := int(*patch.Status)
		req.NewStatus = &code
	}

	updated, err := s.client.UpdateTrackingTopic(ctx, req)
	if err != nil {
		return core.Topic{}, s.fail(&OpError{
			Op:      log.OpUpdate,
			Message: userMessage(err, "Failed to update topic"),
			Err:     err,
		})
	}

	s.logger.InfoContext(ctx, "Topic updated",
		log.FieldTopicID, updated.ID,
		log.FieldOperation, log.OpUpdate)

	return s.readBack(ctx, updated.Domain()), nil
}

// Cancel retires a topic. There is no hard delete: cancellation is a
// status transition, and callers never construct the status code
// themselves.
func (s *TopicStore) Cancel(ctx context.Context, topicID int64) (core.Topic, error) {
	cancelled := core.TopicCancelled
	return s.Update(ctx, topicID, TopicPatch{Status: &cancelled})
}

func (s *TopicStore) readBack(ctx context.Context, written core.Topic) core.Topic {
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "Read-back refresh failed after write",
			log.FieldTopicID, written.ID,
			log.FieldError, err)
		return written
	}
	if fresh, ok := s.ByID(written.ID); ok {
		return fresh
	}
	return written
}

// Topics returns a snapshot of the current collection.
func (s *TopicStore) Topics() []core.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Topic(nil), s.items...)
}

func (s *TopicStore) ByID(id int64) (core.Topic, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if t.ID == id {
			return t, true
		}
	}
	return core.Topic{}, false
}

// Active filters to active topics only.
func (s *TopicStore) Active() []core.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Topic
	for _, t := range s.items {
		if t.Status == core.TopicActive {
			out = append(out, t)
		}
	}
	return out
}

func (s *TopicStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *TopicStore) ClearErr() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *TopicStore) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}
