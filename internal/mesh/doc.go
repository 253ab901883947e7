// Package mesh holds indexed triangle meshes and a few primitive generators
// used to build soft bodies and static colliders.
package mesh
