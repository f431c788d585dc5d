package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"personas/pkg/requestcontext"
)

// Publisher appends entries to the store and fans them out to mirrors.
// The store write is the source of truth; mirror failures never surface.
type Publisher struct {
	store   Store
	mirrors []Mirror
	logger  *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithMirror adds a best-effort mirror.
func WithMirror(m Mirror) PublisherOption {
	return func(p *Publisher) {
		if m != nil {
			p.mirrors = append(p.mirrors, m)
		}
	}
}

// WithLogger sets the publisher logger.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher builds a Publisher over store.
func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit stamps and appends entry. The returned error reflects only the store write.
func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.EventID == uuid.Nil {
		entry.EventID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if err := p.store.Append(ctx, entry); err != nil {
		return err
	}
	for _, m := range p.mirrors {
		m.Mirror(ctx, entry)
	}
	p.logger.DebugContext(ctx, "audit entry appended",
		"request_id", requestcontext.RequestID(ctx),
		"operation", entry.Operation,
		"event_id", entry.EventID,
	)
	return nil
}
