package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/linktext/internal/config"
	apperrors "git.home.luguber.info/inful/linktext/internal/errors"
	"git.home.luguber.info/inful/linktext/internal/logfields"
)

// NATSPublisher publishes render warnings to a JetStream subject.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSPublisher connects to the configured NATS server.
func NewNATSPublisher(cfg config.NotifyConfig) (*NATSPublisher, error) {
	if !cfg.Enabled {
		return nil, apperrors.New(apperrors.CategoryNotify, apperrors.SeverityError,
			"notification is disabled")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryNotify, apperrors.SeverityError,
			"failed to connect to NATS")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, apperrors.Wrap(err, apperrors.CategoryNotify, apperrors.SeverityError,
			"failed to create JetStream context")
	}

	slog.Info("NATS publisher initialized",
		slog.String("url", cfg.URL),
		slog.String("subject", cfg.Subject))

	return &NATSPublisher{conn: conn, js: js, subject: cfg.Subject}, nil
}

// Publish sends one warning. The caller's context bounds the publish; a
// five-second ceiling applies regardless.
func (p *NATSPublisher) Publish(ctx context.Context, warning RenderWarning) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	warning.Timestamp = time.Now()

	data, err := json.Marshal(warning)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryNotify, apperrors.SeverityError,
			"failed to marshal warning")
	}

	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryNotify, apperrors.SeverityError,
			"failed to publish warning")
	}

	slog.Debug("Published render warning",
		logfields.Page(warning.Page),
		slog.String("kind", string(warning.Kind)))
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
