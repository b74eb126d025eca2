package chathub

import "roomgo/backend/internal/models"

// Client is the interface for one live authenticated connection. It abstracts
// the underlying transport so the hub and registry can manage connections
// uniformly.
type Client interface {
	// UserUUID returns the UUID of the authenticated user bound to this connection.
	UserUUID() string
	// UserIndex returns the numeric index of the authenticated user.
	UserIndex() int64
	// Nickname returns the display name of the authenticated user.
	Nickname() string

	// SendChannel returns the channel the hub pushes outbound envelopes into.
	// It is a send-only channel from the hub's point of view.
	SendChannel() chan<- models.WireResponse

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's connection. It is safe to call more
	// than once; the send channel itself is never closed.
	Close()
}
