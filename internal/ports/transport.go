package ports

import (
	"context"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
)

// Transport delivers a single payload to the downstream chat channel.
// Implementations classify provider responses into a domain.SendResult;
// the core never inspects wire-level responses itself.
type Transport interface {
	// Send blocks for the duration of one request. It must not retry.
	Send(ctx context.Context, payload []byte) domain.SendResult
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, payload []byte) domain.SendResult

// Send calls f(ctx, payload).
func (f TransportFunc) Send(ctx context.Context, payload []byte) domain.SendResult {
	return f(ctx, payload)
}
