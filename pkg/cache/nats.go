package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// DefaultSubject is the NATS subject invalidations are published on.
const DefaultSubject = "pantry.invalidate"

// invalidation is the wire form of one notice.
type invalidation struct {
	Key    []string `json:"key"`
	Origin string   `json:"origin,omitempty"`
}

// NATS publishes invalidations so every process sharing a backend can
// evict its local reads. Publish failures are logged, never returned.
type NATS struct {
	nc      *nats.Conn
	subject string
	origin  string
	logger  *zap.Logger
}

// NATSOption configures a NATS coordinator.
type NATSOption func(*NATS)

// WithSubject overrides DefaultSubject.
func WithSubject(subject string) NATSOption {
	return func(n *NATS) { n.subject = subject }
}

// WithOrigin tags published notices so Subscribe can skip the publisher's
// own notices.
func WithOrigin(origin string) NATSOption {
	return func(n *NATS) { n.origin = origin }
}

// WithNATSLogger sets the logger.
func WithNATSLogger(l *zap.Logger) NATSOption {
	return func(n *NATS) { n.logger = l }
}

// NewNATS returns a coordinator publishing on nc.
func NewNATS(nc *nats.Conn, opts ...NATSOption) *NATS {
	n := &NATS{nc: nc, subject: DefaultSubject, logger: zap.NewNop()}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Invalidate publishes key.
func (n *NATS) Invalidate(_ context.Context, key types.CacheKey) {
	data, err := json.Marshal(invalidation{Key: key, Origin: n.origin})
	if err != nil {
		n.logger.Error("encode invalidation", zap.Error(err))
		return
	}
	if err := n.nc.Publish(n.subject, data); err != nil {
		n.logger.Warn("publish invalidation failed",
			zap.String("subject", n.subject),
			zap.Stringer("scope", key),
			zap.Error(err))
	}
}

// Subscribe forwards every notice received on subject to target. Notices
// carrying skipOrigin are ignored; pass "" to receive everything.
func Subscribe(nc *nats.Conn, subject, skipOrigin string, target Coordinator, logger *zap.Logger) (*nats.Subscription, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if subject == "" {
		subject = DefaultSubject
	}
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		var inv invalidation
		if err := json.Unmarshal(msg.Data, &inv); err != nil {
			logger.Warn("malformed invalidation", zap.Error(err))
			return
		}
		if skipOrigin != "" && inv.Origin == skipOrigin {
			return
		}
		target.Invalidate(context.Background(), types.CacheKey(inv.Key))
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}
