// Package submit turns a finished wizard into one remote insert.
package submit

import (
	"context"

	"github.com/charmbracelet/log"

	"leadterm/internal/lead"
)

// Inserter writes a single record into table.
type Inserter interface {
	InsertOne(ctx context.Context, table string, rec lead.Record) error
}

// Notifier is told about records that were inserted.
type Notifier interface {
	LeadSubmitted(ctx context.Context, rec lead.Record) error
}

// Adapter implements wizard.Submitter on top of an Inserter.
type Adapter struct {
	inserter Inserter
	table    string
	format   lead.Formatter
	notifier Notifier
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithFormatter renders currency amounts in the summary message.
func WithFormatter(format lead.Formatter) Option {
	return func(a *Adapter) { a.format = format }
}

// WithNotifier announces successful inserts.
func WithNotifier(n Notifier) Option {
	return func(a *Adapter) { a.notifier = n }
}

// NewAdapter returns an adapter writing to table.
func NewAdapter(inserter Inserter, table string, opts ...Option) *Adapter {
	a := &Adapter{inserter: inserter, table: table}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit flattens fields and inserts them once. Inserter errors are returned
// unchanged so the UI can show the backend's message.
func (a *Adapter) Submit(ctx context.Context, fields lead.Fields) error {
	rec := lead.NewRecord(fields, a.format)
	if err := a.inserter.InsertOne(ctx, a.table, rec); err != nil {
		return err
	}
	log.Info("lead inserted", "table", a.table, "property_type", rec.PropertyType)

	if a.notifier != nil {
		if err := a.notifier.LeadSubmitted(ctx, rec); err != nil {
			log.Warn("lead notification failed", "err", err)
		}
	}
	return nil
}
