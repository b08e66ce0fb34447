// Package domain contains the core domain entities and value objects for geophoto.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (HTTP, file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [Position]: A geographic fix (latitude, longitude in degrees)
//   - [PhotoReference]: The resource locator of a single resolved photo
//   - [PermissionStatus]: Whether location tracking may proceed
//   - [ViewState]: The one value the presentation layer observes
//   - [Feed]: The accumulated photo sequence, as persisted between runs
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
