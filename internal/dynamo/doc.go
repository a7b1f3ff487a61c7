// Package dynamo provides the shared primitives of the response engine.
//
// The package defines the vocabulary used by the numerical layers:
//
//   - [State]: vector representing the state of a realized system
//   - [System]: interface for continuous-time dynamics dX/dt = f(X, u, t)
//   - [Integrator]: fixed-step numerical integrator interface
//   - the engine error taxonomy ([ErrImproperTransferFunction],
//     [ErrDegreeExceeded], [ErrSingularSystem], [ErrUnstableSimulation])
//
// # Errors
//
// Every failure produced by the engine wraps one of the sentinel errors in
// this package, so callers classify failures with [errors.Is]. Divergence is
// reported through [SimulationError], which records where the integration
// stopped.
//
// # Thread Safety
//
// The types in this package are plain values. Integrators may keep scratch
// buffers and must not be shared between goroutines.
package dynamo
