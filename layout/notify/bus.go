// Package notify is a synchronous per-build publish/subscribe channel used by
// flowables to report facts discovered while they are being placed on pages.
package notify

import (
	"fmt"

	"go.uber.org/zap"
)

// EventTOCEntry is published once for every heading placed on a page.
const EventTOCEntry = "TOCEntry"

// Handler processes single notification. Returned error is fatal for the
// current pass.
type Handler func(payload any) error

// HandlerError reports failed subscriber.
type HandlerError struct {
	Event string
	Err   error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for %q failed: %v", e.Event, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Bus dispatches notifications to subscribers in subscription order. One bus
// belongs to one document build and is never shared.
// NOTE: not to be used concurrently.
type Bus struct {
	handlers map[string][]Handler
	failure  *HandlerError
	log      *zap.Logger
}

// New creates bus for a single document build.
func New(log *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers handler for event.
func (b *Bus) Subscribe(event string, h Handler) {
	b.handlers[event] = append(b.handlers[event], h)
}

// Publish invokes every handler subscribed to event. Failures are not
// reported to the publisher, they are kept until Reset and make all
// following publications no-ops.
func (b *Bus) Publish(event string, payload any) {
	if b.failure != nil {
		return
	}
	for _, h := range b.handlers[event] {
		if err := b.dispatch(h, payload); err != nil {
			b.failure = &HandlerError{Event: event, Err: err}
			b.log.Debug("Notification handler failed", zap.String("event", event), zap.Error(err))
			return
		}
	}
}

func (b *Bus) dispatch(h Handler, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(payload)
}

// Err returns first handler failure since last Reset. Returns nil interface
// when there was none.
func (b *Bus) Err() error {
	if b.failure == nil {
		return nil
	}
	return b.failure
}

// Reset forgets failure, subscribers are kept.
func (b *Bus) Reset() {
	b.failure = nil
}
