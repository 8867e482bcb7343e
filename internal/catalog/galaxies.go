package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/chazu/gws/internal/models"
)

func scanGalaxy(row rowScanner) (models.Galaxy, error) {
	var g models.Galaxy
	err := row.Scan(&g.ID, &g.Name, &g.UserID)
	return g, err
}

// ListGalaxies returns the galaxies owned by userID
func (s *Store) ListGalaxies(ctx context.Context, q Querier, userID uuid.UUID) ([]models.Galaxy, error) {
	return queryList(ctx, s, q, "list galaxies", scanGalaxy,
		`SELECT id, name, user_id FROM galaxies WHERE user_id = $1 ORDER BY name`, userID)
}

// GetGalaxy returns a galaxy owned by userID
func (s *Store) GetGalaxy(ctx context.Context, q Querier, userID, id uuid.UUID) (*models.Galaxy, error) {
	g, err := scanGalaxy(q.QueryRowContext(ctx, s.rebind(
		`SELECT id, name, user_id FROM galaxies WHERE id = $1 AND user_id = $2`), id, userID))
	if err != nil {
		return nil, mapError("get galaxy", err)
	}
	return &g, nil
}

// CreateGalaxy inserts a galaxy owned by userID
func (s *Store) CreateGalaxy(ctx context.Context, q Querier, userID uuid.UUID, req models.GalaxyRequest) (*models.Galaxy, error) {
	g := &models.Galaxy{ID: uuid.New(), Name: req.Name, UserID: userID}
	_, err := q.ExecContext(ctx, s.rebind(
		`INSERT INTO galaxies (id, name, user_id) VALUES ($1, $2, $3)`), g.ID, g.Name, g.UserID)
	if err != nil {
		return nil, mapError("create galaxy", err)
	}
	return g, nil
}

// UpdateGalaxy renames a galaxy owned by userID
func (s *Store) UpdateGalaxy(ctx context.Context, q Querier, userID, id uuid.UUID, req models.GalaxyRequest) (*models.Galaxy, error) {
	err := s.exec(ctx, q, "update galaxy",
		`UPDATE galaxies SET name = $1 WHERE id = $2 AND user_id = $3`, req.Name, id, userID)
	if err != nil {
		return nil, err
	}
	return &models.Galaxy{ID: id, Name: req.Name, UserID: userID}, nil
}

// DeleteGalaxy deletes a galaxy owned by userID together with its stars,
// planets and variables
func (s *Store) DeleteGalaxy(ctx context.Context, q Querier, userID, id uuid.UUID) error {
	return s.exec(ctx, q, "delete galaxy",
		`DELETE FROM galaxies WHERE id = $1 AND user_id = $2`, id, userID)
}
