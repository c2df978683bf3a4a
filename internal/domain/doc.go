// Package domain contains the core entities and value objects of the bridge.
//
// This package is the innermost layer. It has no dependencies on HTTP, the
// file system or logging and holds only the types the delivery core reasons
// about.
//
// # Entities
//
//   - [RawEvent]: a chat event as received from the game server
//   - [Message]: an admitted, formatted message with its sequence number
//   - [SendResult]: the tagged outcome of one webhook dispatch
//   - [RateLimitScope]: the provider-reported scope of a throttling rejection
package domain
