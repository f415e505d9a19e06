// Package events announces submitted leads over NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"leadterm/internal/lead"
)

// SubjectLeadSubmitted carries one Event per inserted lead.
const SubjectLeadSubmitted = "leads.submitted"

// Embedded selects an in-process server instead of dialing a URL.
const Embedded = "embedded"

// Event is the JSON payload published on SubjectLeadSubmitted.
type Event struct {
	SubmittedAt time.Time   `json:"submitted_at"`
	Lead        lead.Record `json:"lead"`
}

// Publisher owns a NATS connection and, when embedded, the server behind it.
type Publisher struct {
	conn   *nats.Conn
	server *server.Server
	now    func() time.Time
}

// Connect dials url, or starts an embedded server when url is Embedded.
func Connect(url string) (*Publisher, error) {
	if url == "" {
		return nil, errors.New("events url is empty")
	}
	if url == Embedded {
		ns, err := StartEmbedded()
		if err != nil {
			return nil, err
		}
		conn, err := nats.Connect("", nats.InProcessServer(ns))
		if err != nil {
			ns.Shutdown()
			return nil, fmt.Errorf("connect in-process: %w", err)
		}
		log.Debug("connected to embedded nats")
		return &Publisher{conn: conn, server: ns, now: time.Now}, nil
	}

	conn, err := nats.Connect(url, nats.Name("leadterm"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", url, err)
	}
	log.Debug("connected to nats", "url", url)
	return &Publisher{conn: conn, now: time.Now}, nil
}

// StartEmbedded runs a NATS server with no network listener.
func StartEmbedded() (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{
		DontListen: true,
		NoSigs:     true,
		NoLog:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(4 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("nats server failed to start within timeout")
	}
	return ns, nil
}

// LeadSubmitted publishes rec and waits for the server to acknowledge it.
func (p *Publisher) LeadSubmitted(ctx context.Context, rec lead.Record) error {
	data, err := json.Marshal(Event{SubmittedAt: p.now().UTC(), Lead: rec})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(SubjectLeadSubmitted, data); err != nil {
		return fmt.Errorf("publish %s: %w", SubjectLeadSubmitted, err)
	}
	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return ctx.Err()
		}
	}
	if err := p.conn.FlushTimeout(timeout); err != nil {
		return fmt.Errorf("flush %s: %w", SubjectLeadSubmitted, err)
	}
	return nil
}

// Subscribe calls fn for every event until the subscription is drained.
// Undecodable messages are logged and skipped.
func (p *Publisher) Subscribe(fn func(Event)) (*nats.Subscription, error) {
	return p.conn.Subscribe(SubjectLeadSubmitted, func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Warn("skipping malformed lead event", "err", err)
			return
		}
		fn(ev)
	})
}

// Close drains the connection and stops the embedded server if any.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	drained := make(chan error, 1)
	go func() { drained <- p.conn.Drain() }()
	select {
	case err := <-drained:
		if err != nil {
			log.Warn("nats drain failed, forcing close", "err", err)
			p.conn.Close()
		}
	case <-time.After(2 * time.Second):
		log.Warn("nats drain timed out, forcing close")
		p.conn.Close()
	}
	// Drain returns before the connection is fully closed
	for deadline := time.Now().Add(2 * time.Second); !p.conn.IsClosed() && time.Now().Before(deadline); {
		time.Sleep(10 * time.Millisecond)
	}

	if p.server != nil {
		p.server.Shutdown()
		done := make(chan struct{})
		go func() {
			p.server.WaitForShutdown()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			return errors.New("nats server shutdown timed out")
		}
	}
	return nil
}
