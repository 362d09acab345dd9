package ports

import (
	"github.com/livepoll/api/internal/core/domain"
)

// Broadcaster pushes events to live subscribers of a topic (one topic per
// poll room, plus a global channel). Delivery is best-effort, at-most-once
// and unordered relative to store commits; it is never the source of truth.
type Broadcaster interface {
	Publish(topic string, event domain.Event)
	PublishGlobal(event domain.Event)
}

// NopBroadcaster satisfies Broadcaster for wiring that has no realtime
// transport, such as one-shot jobs.
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(string, domain.Event) {}

func (NopBroadcaster) PublishGlobal(domain.Event) {}
