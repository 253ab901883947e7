// Package softbody simulates closed triangle meshes as pressurised
// mass-spring networks.
//
// Every mesh edge becomes one spring. A body keeps a rest volume from its
// construction-time shape and pushes outward with a force inversely
// proportional to its current volume. Time stepping is left to a
// dynamo.Integrator: callers compute a state delta from [Body.Derivative]
// and hand it to [Body.UpdateState], which clips vertex movement against
// neighbouring colliders.
package softbody
