// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [LocationProvider]: Emits position fixes and permission changes
//   - [LocationObserver]: Receives those callbacks (implemented by the fetch machine)
//   - [PhotoLookup]: Resolves a position to at most one photo reference
//   - [FeedRepository]: Persists and loads the accumulated photo feed
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (Flickr, fsnotify, Kafka, MinIO, etc.).
package ports
