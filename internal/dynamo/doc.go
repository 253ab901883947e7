// Package dynamo provides core simulation primitives shared by the solvers.
//
// The package defines the fundamental types for numerical simulation:
//
//   - [State]: flat point vector, [PointStride] scalars per point
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator interface
//   - [ParallelFor]: chunked data-parallel loop
//
// # Point Layout
//
// Soft bodies store each point as six contiguous scalars:
//
//	x, y, z, vx, vy, vz
//
// so the scalar for point id lives at id*PointStride + offset.
//
// # Thread Safety
//
// State values are plain slices. Callers that split work with [ParallelFor]
// must give each chunk disjoint write slots.
package dynamo
