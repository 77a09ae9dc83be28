package providers

import "time"

const (
	// shutdownTimeout bounds graceful shutdown of the HTTP server and SSE streams.
	shutdownTimeout = 30 * time.Second

	// relayConnectTimeout bounds the initial redis ping for the event relay.
	relayConnectTimeout = 5 * time.Second
)
