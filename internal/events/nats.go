package events

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Publisher is the subset of *nats.Conn the forwarder needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSForwarder relays bus events to NATS subjects of the form
// "<prefix>.<event name>". Delivery failures are logged, not returned, so a
// broker outage never fails the write that produced the event.
type NATSForwarder struct {
	pub    Publisher
	prefix string
	logger *zap.Logger
}

func NewNATSForwarder(pub Publisher, prefix string, logger *zap.Logger) *NATSForwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "tabletop"
	}
	return &NATSForwarder{pub: pub, prefix: prefix, logger: logger}
}

func (f *NATSForwarder) Subject(name string) string {
	return f.prefix + "." + name
}

func (f *NATSForwarder) Handle(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		f.logger.Warn("encode event", zap.String("event", e.Name), zap.Error(err))
		return nil
	}
	if err := f.pub.Publish(f.Subject(e.Name), data); err != nil {
		f.logger.Warn("forward event", zap.String("subject", f.Subject(e.Name)), zap.Error(err))
	}
	return nil
}

// Attach subscribes the forwarder to every named event on bus.
func (f *NATSForwarder) Attach(bus *Bus, names ...string) {
	for _, name := range names {
		bus.Subscribe(name, f.Handle)
	}
}
