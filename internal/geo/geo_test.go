package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadterm/internal/lead"
)

type blockingGeocoder struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
	result  []lead.Address
	err     error
}

func (b *blockingGeocoder) Search(ctx context.Context, query string) ([]lead.Address, error) {
	b.calls.Add(1)
	if b.started != nil {
		close(b.started)
	}
	if b.release != nil {
		select {
		case <-b.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return b.result, b.err
}

func TestServiceUnavailableWithoutProvider(t *testing.T) {
	s := NewService(nil)
	assert.Equal(t, StateUnavailable, s.State())
	_, err := s.Search(context.Background(), "Rua Augusta")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestServiceShortQuerySkipsProvider(t *testing.T) {
	g := &blockingGeocoder{}
	s := NewService(g)
	res, err := s.Search(context.Background(), " ab ")
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Zero(t, g.calls.Load())
}

func TestServiceLoadingState(t *testing.T) {
	g := &blockingGeocoder{
		release: make(chan struct{}),
		started: make(chan struct{}),
		result:  []lead.Address{{Display: "Rua Augusta, São Paulo"}},
	}
	s := NewService(g)
	require.Equal(t, StateReady, s.State())

	done := make(chan []lead.Address)
	go func() {
		res, _ := s.Search(context.Background(), "Rua Augusta")
		done <- res
	}()
	<-g.started
	assert.Equal(t, StateLoading, s.State())
	close(g.release)
	res := <-done
	require.Len(t, res, 1)
	assert.Equal(t, StateReady, s.State())
}

func TestServiceUnavailableUntilNextSuccess(t *testing.T) {
	boom := errors.New("boom")
	g := &blockingGeocoder{err: boom}
	s := NewService(g)
	_, err := s.Search(context.Background(), "Copacabana")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.LastError(), boom)
	assert.Equal(t, StateUnavailable, s.State())
	assert.True(t, s.Configured())

	g.err = nil
	g.result = []lead.Address{{Display: "Copacabana, Rio de Janeiro"}}
	res, err := s.Search(context.Background(), "Copacabana")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.NoError(t, s.LastError())
	assert.Equal(t, StateReady, s.State())
}

func TestServiceCancelledCallerDoesNotFailOthers(t *testing.T) {
	g := &blockingGeocoder{
		release: make(chan struct{}),
		started: make(chan struct{}),
		result:  []lead.Address{{Display: "Rua X, Niterói"}},
	}
	s := NewService(g)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := s.Search(ctxA, "rua x")
		errA <- err
	}()
	<-g.started

	type outcome struct {
		res []lead.Address
		err error
	}
	doneB := make(chan outcome, 1)
	go func() {
		res, err := s.Search(context.Background(), "Rua X")
		doneB <- outcome{res, err}
	}()

	time.Sleep(30 * time.Millisecond)
	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(g.release)
	b := <-doneB
	require.NoError(t, b.err)
	require.Len(t, b.res, 1)
	assert.Equal(t, int32(1), g.calls.Load())
	assert.Equal(t, StateReady, s.State())
}

func TestServiceTimeoutMarksUnavailable(t *testing.T) {
	g := &blockingGeocoder{release: make(chan struct{})}
	s := NewService(g)
	s.timeout = 20 * time.Millisecond
	_, err := s.Search(context.Background(), "Copacabana")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateUnavailable, s.State())
}

func TestCatalogSearch(t *testing.T) {
	c := NewCatalog([]lead.Address{
		{Display: "Rua Augusta, 100, Consolação, São Paulo", Coordinates: lead.Coordinates{Lat: -23.55, Lng: -46.65}},
		{Display: "Avenida Atlântica, 1702, Copacabana, Rio de Janeiro", Coordinates: lead.Coordinates{Lat: -22.97, Lng: -43.18}},
		{Display: "Rua das Flores, Curitiba"},
	})

	res, err := c.Search(context.Background(), "sao paulo")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, -23.55, res[0].Coordinates.Lat)

	res, err = c.Search(context.Background(), "Atlant")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Contains(t, res[0].Display, "Copacabana")

	res, err = c.Search(context.Background(), "rua")
	require.NoError(t, err)
	assert.Len(t, res, 2)

	res, err = c.Search(context.Background(), "!!!")
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestNominatimSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Rua Augusta", r.URL.Query().Get("q"))
		assert.Equal(t, "br", r.URL.Query().Get("countrycodes"))
		assert.Equal(t, "leadterm-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"display_name": "Rua Augusta, São Paulo", "lat": "-23.5536", "lon": "-46.6529"},
			{"display_name": "broken", "lat": "x", "lon": "1"}
		]`))
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL, "leadterm-test")
	res, err := n.Search(context.Background(), "Rua Augusta")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Rua Augusta, São Paulo", res[0].Display)
	assert.InDelta(t, -46.6529, res[0].Coordinates.Lng, 1e-9)
}

func TestNominatimStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewNominatim(srv.URL, "").Search(context.Background(), "Rua Augusta")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
