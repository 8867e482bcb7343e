package models

import "github.com/google/uuid"

// DefaultMountPath is where a planet is mounted when no path is given
const DefaultMountPath = "/data"

// Planet is a volume, optionally attached to a star of the same galaxy
type Planet struct {
	ID uuid.UUID `json:"id" db:"id"`

	Name string `json:"name" db:"name"`

	// Capacity is the requested size in gigabytes. The cluster claim uses
	// the provisioner's fixed size.
	Capacity int32 `json:"capacity" db:"capacity"`

	// Path is the mount path inside the attached star's container
	Path string `json:"path" db:"path"`

	// StarID is the star the planet is attached to, if any
	StarID *uuid.UUID `json:"star_id,omitempty" db:"star_id"`

	GalaxyID uuid.UUID `json:"galaxy_id" db:"galaxy_id"`
}

// IsAttached reports whether the planet is mounted into a star
func (p *Planet) IsAttached() bool {
	return p.StarID != nil
}

// MountPath returns the mount path, falling back to DefaultMountPath
func (p *Planet) MountPath() string {
	if p.Path == "" {
		return DefaultMountPath
	}
	return p.Path
}

// PlanetRequest is the request body for creating or updating a planet
type PlanetRequest struct {
	Name     string     `json:"name" binding:"required,min=1,max=64"`
	Capacity int32      `json:"capacity" binding:"required,min=1,max=1024"`
	Path     string     `json:"path" binding:"omitempty,startswith=/,max=255"`
	StarID   *uuid.UUID `json:"star_id"`
}

// PlanetListResponse is the response for listing planets
type PlanetListResponse struct {
	Planets []Planet `json:"planets"`
	Total   int      `json:"total"`
}
