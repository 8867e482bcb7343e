package models

import "github.com/google/uuid"

// Galaxy is a tenant. Every galaxy maps to exactly one cluster namespace.
type Galaxy struct {
	// ID is the unique identifier for this galaxy
	ID uuid.UUID `json:"id" db:"id"`

	// Name is the human-readable galaxy name
	Name string `json:"name" db:"name"`

	// UserID is the owner of the galaxy
	UserID uuid.UUID `json:"user_id" db:"user_id"`
}

// GalaxyRequest is the request body for creating or renaming a galaxy
type GalaxyRequest struct {
	// Name must be 1-64 characters
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// GalaxyListResponse is the response for listing galaxies
type GalaxyListResponse struct {
	Galaxies []Galaxy `json:"galaxies"`
	Total    int      `json:"total"`
}
