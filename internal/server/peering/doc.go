// Package peering connects the broadcast layer of an instance to its peers.
//
// Three transports are provided:
//
//   - Link: an outbound WebSocket to a peer's socket endpoint, redialled
//     with backoff. Frames carry forwardedBy, so the peer treats them as
//     relayed traffic.
//   - RedisRelay: publish/subscribe on a shared Redis channel.
//   - Discovery: gossip membership (memberlist). Each node advertises its
//     socket URL; a Mesh keeps one Link per live member.
//
// All transports are fire-and-forget. A peer that is unreachable misses
// the messages relayed while it is down.
package peering

import "github.com/yndnr/ovecore-go/internal/core/domain"

// Receiver applies envelopes arriving from peers.
type Receiver interface {
	Receive(env *domain.Envelope)
}
