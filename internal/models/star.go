package models

import "github.com/google/uuid"

// Exposure is how a star is reachable
type Exposure string

const (
	// ExposureNone keeps the star reachable only through its Service
	ExposureNone Exposure = "none"

	// ExposurePrivate publishes the star under the cluster-internal domain
	ExposurePrivate Exposure = "private"

	// ExposurePublic publishes the star through an Ingress
	ExposurePublic Exposure = "public"
)

// Star is a workload in a galaxy
type Star struct {
	ID uuid.UUID `json:"id" db:"id"`

	// Name is the human-readable star name
	Name string `json:"name" db:"name"`

	// Nebula is the container image reference
	Nebula string `json:"nebula" db:"nebula"`

	// Port is the port the container listens on
	Port int32 `json:"port" db:"port"`

	// PublicDomain is the subdomain of the public Ingress, if any
	PublicDomain *string `json:"public_domain,omitempty" db:"public_domain"`

	// PrivateDomain is the subdomain of the cluster-internal DNS entry, if any
	PrivateDomain *string `json:"private_domain,omitempty" db:"private_domain"`

	GalaxyID uuid.UUID `json:"galaxy_id" db:"galaxy_id"`
}

// IsPublic reports whether the star has a public Ingress
func (s *Star) IsPublic() bool {
	return s.PublicDomain != nil && *s.PublicDomain != ""
}

// IsPrivate reports whether the star has a cluster-internal DNS entry
func (s *Star) IsPrivate() bool {
	return s.PrivateDomain != nil && *s.PrivateDomain != ""
}

// Exposure returns the exposure mode derived from the domains. A star with
// both domains reports public.
func (s *Star) Exposure() Exposure {
	switch {
	case s.IsPublic():
		return ExposurePublic
	case s.IsPrivate():
		return ExposurePrivate
	default:
		return ExposureNone
	}
}

// StarRequest is the request body for creating or updating a star
type StarRequest struct {
	Name          string  `json:"name" binding:"required,min=1,max=64"`
	Nebula        string  `json:"nebula" binding:"required,max=255"`
	Port          int32   `json:"port" binding:"required,min=1,max=65535"`
	PublicDomain  *string `json:"public_domain" binding:"omitempty,subdomain"`
	PrivateDomain *string `json:"private_domain" binding:"omitempty,subdomain"`
}

// StarListResponse is the response for listing stars
type StarListResponse struct {
	Stars []Star `json:"stars"`
	Total int    `json:"total"`
}
