// Package geo provides address search for the owner wizard.
package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"leadterm/internal/lead"
)

// ErrUnavailable is returned when no geocoding provider is configured.
var ErrUnavailable = errors.New("geocoding unavailable")

// Geocoder turns a free-text query into candidate addresses.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]lead.Address, error)
}

// State describes whether address search can currently be used.
type State int

const (
	StateReady State = iota
	StateLoading
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateLoading:
		return "loading"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MinQueryLength is the shortest query sent to a provider.
const MinQueryLength = 3

// DefaultTimeout bounds one provider call.
const DefaultTimeout = 10 * time.Second

// Service wraps a Geocoder with availability tracking. Identical queries in
// flight at the same time share one provider call, which runs under the
// service timeout rather than any single caller's context. A nil provider
// makes the service permanently unavailable; a failed provider call makes it
// unavailable until a later call succeeds.
type Service struct {
	provider Geocoder
	group    singleflight.Group
	timeout  time.Duration

	mu       sync.Mutex
	inflight int
	lastErr  error
}

// NewService returns a Service over provider, which may be nil.
func NewService(provider Geocoder) *Service {
	return &Service{provider: provider, timeout: DefaultTimeout}
}

// Configured reports whether a provider is set, even if its last call failed.
func (s *Service) Configured() bool {
	return s != nil && s.provider != nil
}

// State reports the current availability.
func (s *Service) State() State {
	if !s.Configured() {
		return StateUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.inflight > 0:
		return StateLoading
	case s.lastErr != nil:
		return StateUnavailable
	default:
		return StateReady
	}
}

// LastError returns the error from the most recent failed search.
func (s *Service) LastError() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Search looks up query. Queries shorter than MinQueryLength return no
// candidates without calling the provider. A cancelled ctx only abandons this
// caller's wait; the shared provider call keeps running for the others.
func (s *Service) Search(ctx context.Context, query string) ([]lead.Address, error) {
	if !s.Configured() {
		return nil, ErrUnavailable
	}
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return nil, nil
	}

	ch := s.group.DoChan(strings.ToLower(query), func() (any, error) {
		return s.call(context.WithoutCancel(ctx), query)
	})
	select {
	case <-ctx.Done():
		log.Debug("address search abandoned", "query", query, "err", ctx.Err())
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("search %q: %w", query, res.Err)
		}
		results := res.Val.([]lead.Address)
		log.Debug("address search", "query", query, "results", len(results), "shared", res.Shared)
		return append([]lead.Address(nil), results...), nil
	}
}

// call runs one provider lookup and records its outcome.
func (s *Service) call(ctx context.Context, query string) ([]lead.Address, error) {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	results, err := s.provider.Search(ctx, query)

	s.mu.Lock()
	s.inflight--
	s.lastErr = err
	s.mu.Unlock()
	if err != nil {
		log.Warn("address search failed", "query", query, "err", err)
		return nil, err
	}
	return results, nil
}
