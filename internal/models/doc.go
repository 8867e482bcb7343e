// Package models defines the catalog entities of the control plane and the
// request bodies the HTTP API binds them from.
//
// A Galaxy is a tenant and owns one cluster namespace. Stars are workloads
// running in a galaxy, Planets are volumes that may be attached to a star
// and Variables are environment entries stored in a star's vars Secret.
package models
