// Package core provides the domain logic of the catalog console.
//
// This package holds everything that is independent of HTTP and HTML: the
// product model, the view projection, CSV export, record validation and the
// console state transitions. It can be driven by web handlers, a CLI or tests
// without modification.
//
// # Architecture
//
// The package is organized around a few collaborators:
//
//   - [DataAccess]: the remote catalog (list, create, update). Implemented
//     outside this package.
//   - [Console]: one user's view state. Every mutation goes through a named
//     transition method and ends with a projection notification.
//   - [Project]: the pure filter/sort function that derives what the user sees
//     from the fetched page.
//   - [Editor]: the Viewing/Editing/Submitting state machine shared by the
//     edit and create flows.
//   - [Presenter]: the rendering side, notified on projection changes,
//     validation failures, submit state changes and alerts.
//
// # View Derivation
//
// The console only ever holds one server page. Search and sort are applied to
// that page by [Project]; pagination is an offset/limit concern of the remote
// API. A page shorter than the page size is taken to be the last page.
//
//	c := core.NewConsole(api, presenter, core.ConsoleOptions{PageSize: 10})
//	c.Init(ctx)          // categories + page 1
//	c.SetSearch("shirt") // recompute, no fetch
//	c.ToggleSort(core.SortPrice)
//	name, body, _ := c.ExportCSV()
//
// # Error Handling
//
// Failures are typed: [NetworkError] for transport or non-success responses,
// [ValidationError] for rejected form input and [DataShapeError] for bodies
// that do not decode into the expected shape. [MapError] turns any of them
// into a coded [UserMessage]:
//
//   - NET001-NET004: upstream API errors
//   - VAL001-VAL005: form validation
//   - DATA001: unexpected response shape
//   - UI001-UI006: console state conflicts and unreadable requests
//   - RATE001: throttled or saturated requests
package core
