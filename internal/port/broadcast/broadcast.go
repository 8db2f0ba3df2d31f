// Package broadcast defines the port for pushing real-time pool events
// (approval lifecycle, agent registration) to connected clients.
package broadcast

import "context"

// Broadcaster fans a typed event out to every connected client.
// Delivery is best-effort.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
