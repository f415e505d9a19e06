package events

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadterm/internal/lead"
)

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect("")
	assert.Error(t, err)
}

func TestEmbeddedPublishSubscribe(t *testing.T) {
	p, err := Connect(Embedded)
	require.NoError(t, err)
	defer func() { assert.NoError(t, p.Close()) }()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	got := make(chan Event, 1)
	sub, err := p.Subscribe(func(ev Event) { got <- ev })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	rec := lead.Record{FirstName: "Maria", Email: "maria@example.com", Category: lead.Category, NightlyRate: 250}
	require.NoError(t, p.LeadSubmitted(context.Background(), rec))

	select {
	case ev := <-got:
		assert.Equal(t, rec, ev.Lead)
		assert.True(t, fixed.Equal(ev.SubmittedAt))
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSubscribeSkipsMalformedPayload(t *testing.T) {
	p, err := Connect(Embedded)
	require.NoError(t, err)
	defer p.Close()

	got := make(chan Event, 2)
	sub, err := p.Subscribe(func(ev Event) { got <- ev })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, p.conn.Publish(SubjectLeadSubmitted, []byte("not json")))
	require.NoError(t, p.LeadSubmitted(context.Background(), lead.Record{FirstName: "Ana"}))

	select {
	case ev := <-got:
		assert.Equal(t, "Ana", ev.Lead.FirstName)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	assert.Empty(t, got)
}

func TestPublisherOnExistingConnection(t *testing.T) {
	ns, err := StartEmbedded()
	require.NoError(t, err)
	defer ns.Shutdown()

	// the embedded server has no listener, so dial it in-process
	conn, err := nats.Connect("", nats.InProcessServer(ns))
	require.NoError(t, err)
	p := &Publisher{conn: conn, now: time.Now}
	defer p.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := conn.ChanSubscribe(SubjectLeadSubmitted, ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, p.LeadSubmitted(context.Background(), lead.Record{FirstName: "Rui"}))
	select {
	case msg := <-ch:
		assert.Contains(t, string(msg.Data), `"first_name":"Rui"`)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestCloseNilPublisher(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.Close())
}
