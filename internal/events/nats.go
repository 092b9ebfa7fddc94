package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/portalsearch/internal/usecase/aggregate"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "portalsearch.sessions"

type natsConn interface {
	Publish(subject string, data []byte) error
}

// NATSOptions configures the connection to the event bus.
type NATSOptions struct {
	Prefix         string
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

// NATSPublisher publishes session events to <prefix>.<sessionID>.<event>.
type NATSPublisher struct {
	conn   natsConn
	nc     *nats.Conn
	prefix string
	now    func() time.Time
	logger *zap.Logger
}

// ConnectNATS dials the bus and returns a publisher.
func ConnectNATS(url string, opts NATSOptions, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 2 * time.Second
	}
	if opts.ReconnectWait <= 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = 60
	}

	nc, err := nats.Connect(url,
		nats.Name("portalsearch"),
		nats.Timeout(opts.ConnectTimeout),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	p := newNATSPublisher(nc, opts.Prefix, logger)
	p.nc = nc
	return p, nil
}

func newNATSPublisher(conn natsConn, prefix string, logger *zap.Logger) *NATSPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{conn: conn, prefix: prefix, now: time.Now, logger: logger}
}

// Subject returns the subject an event of a session is published to.
func (p *NATSPublisher) Subject(sessionID string, kind aggregate.EventKind) string {
	return p.prefix + "." + sessionID + "." + string(kind)
}

// Publish encodes and publishes one event. Failures are only logged.
func (p *NATSPublisher) Publish(sessionID string, e aggregate.Event) {
	data, err := json.Marshal(NewMessage(sessionID, e, p.now()))
	if err != nil {
		p.logger.Error("encode session event", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if err := p.conn.Publish(p.Subject(sessionID, e.Kind), data); err != nil {
		p.logger.Warn("publish session event",
			zap.String("session_id", sessionID), zap.String("event", string(e.Kind)), zap.Error(err))
	}
}

// Ping flushes the connection to verify the bus is reachable.
func (p *NATSPublisher) Ping(ctx context.Context) error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("nats drain", zap.Error(err))
	}
}
