// Package ports defines the interfaces (ports) that connect the delivery core
// to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Transport]: dispatches one payload to the chat provider
//   - [Logger]: structured logging abstraction
//   - [Clock]: time source, replaceable in tests
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) implement them with HTTP, SQLite and zerolog.
package ports
