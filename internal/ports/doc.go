// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Event]: a structured record handed to the sink
//   - [Store]: the document store the sink writes to
//   - [Logger]: structured logging abstraction
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// libraries (mongo-driver, zerolog, prometheus, fsnotify).
package ports
