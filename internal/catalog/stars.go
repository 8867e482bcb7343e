package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/chazu/gws/internal/models"
)

const starColumns = `id, name, nebula, port, public_domain, private_domain, galaxy_id`

func scanStar(row rowScanner) (models.Star, error) {
	var st models.Star
	err := row.Scan(&st.ID, &st.Name, &st.Nebula, &st.Port, &st.PublicDomain, &st.PrivateDomain, &st.GalaxyID)
	return st, err
}

// ListStars returns the stars of a galaxy
func (s *Store) ListStars(ctx context.Context, q Querier, galaxyID uuid.UUID) ([]models.Star, error) {
	return queryList(ctx, s, q, "list stars", scanStar,
		`SELECT `+starColumns+` FROM stars WHERE galaxy_id = $1 ORDER BY name`, galaxyID)
}

// GetStar returns a star of a galaxy
func (s *Store) GetStar(ctx context.Context, q Querier, galaxyID, id uuid.UUID) (*models.Star, error) {
	st, err := scanStar(q.QueryRowContext(ctx, s.rebind(
		`SELECT `+starColumns+` FROM stars WHERE id = $1 AND galaxy_id = $2`), id, galaxyID))
	if err != nil {
		return nil, mapError("get star", err)
	}
	return &st, nil
}

// CreateStar inserts a star into a galaxy
func (s *Store) CreateStar(ctx context.Context, q Querier, galaxyID uuid.UUID, req models.StarRequest) (*models.Star, error) {
	st := starFromRequest(uuid.New(), galaxyID, req)
	_, err := q.ExecContext(ctx, s.rebind(
		`INSERT INTO stars (`+starColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`),
		st.ID, st.Name, st.Nebula, st.Port, st.PublicDomain, st.PrivateDomain, st.GalaxyID)
	if err != nil {
		return nil, mapError("create star", err)
	}
	return st, nil
}

// UpdateStar replaces the fields of a star
func (s *Store) UpdateStar(ctx context.Context, q Querier, galaxyID, id uuid.UUID, req models.StarRequest) (*models.Star, error) {
	st := starFromRequest(id, galaxyID, req)
	err := s.exec(ctx, q, "update star",
		`UPDATE stars SET name = $1, nebula = $2, port = $3, public_domain = $4, private_domain = $5
		 WHERE id = $6 AND galaxy_id = $7`,
		st.Name, st.Nebula, st.Port, st.PublicDomain, st.PrivateDomain, st.ID, st.GalaxyID)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// DeleteStar deletes a star and its variables. Planets attached to it are
// detached.
func (s *Store) DeleteStar(ctx context.Context, q Querier, galaxyID, id uuid.UUID) error {
	return s.exec(ctx, q, "delete star",
		`DELETE FROM stars WHERE id = $1 AND galaxy_id = $2`, id, galaxyID)
}

// starFromRequest normalizes empty domains to NULL so they do not collide
// on the unique constraints
func starFromRequest(id, galaxyID uuid.UUID, req models.StarRequest) *models.Star {
	return &models.Star{
		ID:            id,
		Name:          req.Name,
		Nebula:        req.Nebula,
		Port:          req.Port,
		PublicDomain:  nonEmpty(req.PublicDomain),
		PrivateDomain: nonEmpty(req.PrivateDomain),
		GalaxyID:      galaxyID,
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
