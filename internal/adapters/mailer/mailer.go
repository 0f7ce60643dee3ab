// Package mailer delivers rendered emails. Nothing here talks to a mail
// server: the console mailer logs each message and the outbox mailer keeps a
// CSV copy for inspection.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/prebook/internal/adapters/filestore"
	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/pkg/logger"
)

// OutboxFile is the CSV the outbox mailer appends to.
const OutboxFile = "outbox.csv"

var outboxColumns = []string{"id", "created_at", "template", "from", "to", "subject", "body"}

// Mailer delivers a single email.
type Mailer interface {
	Send(ctx context.Context, e model.Email) error
}

// LogMailer writes every email to the structured log.
type LogMailer struct {
	log logger.Logger
}

// NewLogMailer returns a console mailer. A nil logger uses the global "mailer" logger.
func NewLogMailer(log logger.Logger) *LogMailer {
	if log == nil {
		log = logger.Named("mailer")
	}
	return &LogMailer{log: log}
}

// Send logs e.
func (m *LogMailer) Send(ctx context.Context, e model.Email) error { //nolint:gocritic // hugeParam
	m.log.Info(ctx, "email sent",
		logger.String("id", e.ID),
		logger.String("template", e.TemplateName),
		logger.String("from", e.From),
		logger.String("to", e.To),
		logger.String("subject", e.Subject),
		logger.String("body", e.Body),
	)
	return nil
}

// OutboxMailer appends every email to a CSV file.
type OutboxMailer struct {
	store *filestore.Store
}

// NewOutboxMailer returns a mailer writing to OutboxFile in store.
func NewOutboxMailer(store *filestore.Store) *OutboxMailer {
	return &OutboxMailer{store: store}
}

// Send appends e to the outbox.
func (m *OutboxMailer) Send(_ context.Context, e model.Email) error { //nolint:gocritic // hugeParam
	cols, err := m.store.Columns(OutboxFile)
	if err != nil {
		return fmt.Errorf("outbox: %w", err)
	}
	row := filestore.Row{
		"id":         e.ID,
		"created_at": e.CreatedAt.UTC().Format(time.RFC3339),
		"template":   e.TemplateName,
		"from":       e.From,
		"to":         e.To,
		"subject":    e.Subject,
		"body":       e.Body,
	}
	if len(cols) == 0 {
		return m.store.Write(OutboxFile, []filestore.Row{row}, outboxColumns...)
	}
	return m.store.Append(OutboxFile, row)
}

// Multi fans an email out to several mailers and returns the first error.
type Multi []Mailer

// Send delivers e through each mailer in turn.
func (mm Multi) Send(ctx context.Context, e model.Email) error { //nolint:gocritic // hugeParam
	for _, m := range mm {
		if err := m.Send(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
