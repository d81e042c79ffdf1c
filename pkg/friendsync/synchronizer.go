// Package friendsync keeps a client's pending friend request count in step
// with the server. It merges an initial fetch, rate-limited re-fetches and
// realtime pushes into one value, and raises a notification only when the
// pushed count goes up.
package friendsync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the minimum time between two fetches.
const DefaultInterval = 3 * time.Second

const (
	EventPendingCountChanged = "pending_count_changed"
	EventFriendAccepted      = "friend_accepted"
)

// Event is one message received from the realtime channel.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Friend is the counterpart carried by a friend_accepted event.
type Friend struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Fetcher returns the authoritative pending count.
type Fetcher func(ctx context.Context) (int64, error)

// Notifier receives everything the UI should react to.
type Notifier interface {
	// CountChanged is called with every value to display.
	CountChanged(count int64)
	// NewRequests is called when a push raised the count by delta. The UI
	// should show a notification and refresh its request list.
	NewRequests(delta int64)
	// FriendAccepted is called when a request involving the user was accepted.
	FriendAccepted(relationshipID string, friend Friend)
}

// Stream is a live push subscription.
type Stream interface {
	Events() <-chan Event
	Close() error
}

// Timer is the part of *time.Timer the synchronizer uses.
type Timer interface {
	Stop() bool
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithInterval sets the minimum time between fetches.
func WithInterval(d time.Duration) Option {
	return func(s *Synchronizer) { s.interval = d }
}

// WithLogger sets the logger used for fetch and decode failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Synchronizer) { s.logger = l }
}

// WithClock replaces time.Now and time.AfterFunc.
func WithClock(now func() time.Time, afterFunc func(time.Duration, func()) Timer) Option {
	return func(s *Synchronizer) {
		s.now = now
		s.afterFunc = afterFunc
	}
}

// Synchronizer owns the displayed pending count of one signed-in user.
type Synchronizer struct {
	fetch    Fetcher
	notifier Notifier
	interval time.Duration
	logger   *zap.Logger

	now       func() time.Time
	afterFunc func(time.Duration, func()) Timer

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	count       int64
	lastFetchAt time.Time
	inFlight    bool
	timer       Timer
	// missed is set when the timer fired during a fetch; the refresh is
	// retried once that fetch completes.
	missed   bool
	lastPush int64
	seeded   bool
	// pushes counts applied count pushes. A fetch that saw a push land
	// while it was running is stale and discarded.
	pushes uint64
	stream Stream
	closed bool
}

func New(fetch Fetcher, notifier Notifier, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		fetch:    fetch,
		notifier: notifier,
		interval: DefaultInterval,
		logger:   zap.NewNop(),
		now:      time.Now,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Start performs the initial fetch. It is not rate limited.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return context.Canceled
	}
	s.inFlight = true
	s.lastFetchAt = s.now()
	seq := s.pushes
	s.mu.Unlock()

	count, err := s.fetch(ctx)
	s.finishFetch(count, err, seq)
	return err
}

// Refresh asks for a fresh count after a focus, visibility or explicit
// trigger. It fetches now when the interval has passed and nothing is in
// flight; otherwise one fetch is scheduled for the end of the window.
// Triggers inside the window share that one scheduled fetch.
func (s *Synchronizer) Refresh() {
	s.mu.Lock()
	if s.closed || s.timer != nil {
		s.mu.Unlock()
		return
	}

	elapsed := s.now().Sub(s.lastFetchAt)
	if elapsed >= s.interval && !s.inFlight {
		s.inFlight = true
		s.lastFetchAt = s.now()
		seq := s.pushes
		s.mu.Unlock()
		s.runFetch(seq)
		return
	}

	wait := s.interval - elapsed
	if wait <= 0 {
		wait = s.interval
	}
	s.timer = s.afterFunc(wait, s.fire)
	s.mu.Unlock()
}

func (s *Synchronizer) fire() {
	s.mu.Lock()
	s.timer = nil
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.inFlight {
		s.missed = true
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.lastFetchAt = s.now()
	seq := s.pushes
	s.mu.Unlock()
	s.runFetch(seq)
}

func (s *Synchronizer) runFetch(seq uint64) {
	count, err := s.fetch(s.ctx)
	s.finishFetch(count, err, seq)
}

// finishFetch applies a fetch result. seq is the push counter when the
// fetch started.
func (s *Synchronizer) finishFetch(count int64, err error, seq uint64) {
	s.mu.Lock()
	s.inFlight = false
	if s.closed {
		s.mu.Unlock()
		return
	}
	retry := s.missed
	s.missed = false

	apply := err == nil && s.pushes == seq
	if apply {
		s.count = count
		if !s.seeded {
			s.lastPush = count
			s.seeded = true
		}
	}
	s.mu.Unlock()

	switch {
	case err != nil:
		s.logger.Warn("fetch pending count", zap.Error(err))
	case apply:
		s.notifier.CountChanged(count)
	default:
		s.logger.Debug("discarding fetch overtaken by a push", zap.Int64("count", count))
	}
	if retry {
		s.Refresh()
	}
}

// HandlePush applies one realtime event. A pending count is always
// displayed; a notification is raised only when it is strictly greater than
// the previous pushed value. Pushes that arrive before the first fetch set
// the baseline without notifying.
func (s *Synchronizer) HandlePush(event Event) {
	switch event.Type {
	case EventPendingCountChanged:
		var payload struct {
			Count int64 `json:"count"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			s.logger.Warn("decode pending count event", zap.Error(err))
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		prev, seeded := s.lastPush, s.seeded
		s.pushes++
		s.lastPush = payload.Count
		s.seeded = true
		s.count = payload.Count
		s.mu.Unlock()

		s.notifier.CountChanged(payload.Count)
		if seeded && payload.Count > prev {
			s.notifier.NewRequests(payload.Count - prev)
		}

	case EventFriendAccepted:
		var payload struct {
			RelationshipID string `json:"relationship_id"`
			Friend         Friend `json:"friend"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			s.logger.Warn("decode friend accepted event", zap.Error(err))
			return
		}
		if s.isClosed() {
			return
		}
		s.notifier.FriendAccepted(payload.RelationshipID, payload.Friend)

	default:
		s.logger.Debug("ignoring event", zap.String("type", event.Type))
	}
}

// Listen feeds stream into HandlePush until the stream ends. Close closes it.
func (s *Synchronizer) Listen(stream Stream) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = stream.Close()
		return
	}
	s.stream = stream
	s.mu.Unlock()

	go func() {
		for event := range stream.Events() {
			s.HandlePush(event)
		}
	}()
}

// Count returns the displayed pending count.
func (s *Synchronizer) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Synchronizer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close cancels the scheduled fetch and any fetch in flight and closes the
// push stream. It is safe to call more than once.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	s.cancel()
	if stream != nil {
		return stream.Close()
	}
	return nil
}
