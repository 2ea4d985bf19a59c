// Package broker mirrors persisted activities to NATS JetStream so downstream
// consumers can react without polling the store.
package broker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"kucukaslan/activity/config"
	"kucukaslan/activity/domain"
	"kucukaslan/activity/logging"
)

var _ domain.Publisher = &Publisher{}

// Publisher writes one message per event on <prefix>.<activity type>.
type Publisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	prefix string
}

// Connect establishes the connection and ensures the stream exists.
func Connect(ctx context.Context, cfg config.NATSConfig) (*Publisher, error) {
	log := logging.With("broker")
	opts := []nats.Option{
		nats.Name("activity-tracker"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &Publisher{conn: nc, js: js, prefix: cfg.SubjectPrefix}
	if err := p.ensureStream(ctx, cfg); err != nil {
		nc.Close()
		return nil, err
	}
	log.Info().Str("url", cfg.URL).Str("stream", cfg.Stream).Msg("NATS connection established")
	return p, nil
}

func (p *Publisher) ensureStream(ctx context.Context, cfg config.NATSConfig) error {
	_, err := p.js.Stream(ctx, cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Subjects:    []string{cfg.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Duplicates:  10 * time.Minute,
		Description: "Persisted storefront activities",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Subject returns the subject an event type is published on.
func Subject(prefix string, t domain.ActivityType) string {
	return prefix + "." + string(t)
}

// Publish sends each event with its id as the message id, so the stream drops a
// republished event within its duplicate window.
func (p *Publisher) Publish(ctx context.Context, events []domain.Event) error {
	var errs []error
	for i := range events {
		data, err := json.Marshal(&events[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal event %d: %w", events[i].ID, err))
			continue
		}
		_, err = p.js.Publish(ctx, Subject(p.prefix, events[i].ActivityType), data,
			jetstream.WithMsgID(strconv.FormatInt(events[i].ID, 10)))
		if err != nil {
			errs = append(errs, fmt.Errorf("publish event %d: %w", events[i].ID, err))
			if ctx.Err() != nil {
				break
			}
		}
	}
	return errors.Join(errs...)
}

func (p *Publisher) Ping(context.Context) error {
	if p.conn == nil || !p.conn.IsConnected() {
		return fmt.Errorf("NATS is not connected")
	}
	return nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
