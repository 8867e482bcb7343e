package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/chazu/gws/internal/models"
)

const planetColumns = `id, name, capacity, path, star_id, galaxy_id`

func scanPlanet(row rowScanner) (models.Planet, error) {
	var p models.Planet
	err := row.Scan(&p.ID, &p.Name, &p.Capacity, &p.Path, &p.StarID, &p.GalaxyID)
	return p, err
}

// ListPlanets returns the planets of a galaxy
func (s *Store) ListPlanets(ctx context.Context, q Querier, galaxyID uuid.UUID) ([]models.Planet, error) {
	return queryList(ctx, s, q, "list planets", scanPlanet,
		`SELECT `+planetColumns+` FROM planets WHERE galaxy_id = $1 ORDER BY name`, galaxyID)
}

// GetPlanet returns a planet of a galaxy
func (s *Store) GetPlanet(ctx context.Context, q Querier, galaxyID, id uuid.UUID) (*models.Planet, error) {
	p, err := scanPlanet(q.QueryRowContext(ctx, s.rebind(
		`SELECT `+planetColumns+` FROM planets WHERE id = $1 AND galaxy_id = $2`), id, galaxyID))
	if err != nil {
		return nil, mapError("get planet", err)
	}
	return &p, nil
}

// CreatePlanet inserts a planet into a galaxy. A star to attach to must
// belong to the same galaxy.
func (s *Store) CreatePlanet(ctx context.Context, q Querier, galaxyID uuid.UUID, req models.PlanetRequest) (*models.Planet, error) {
	if err := s.checkStar(ctx, q, galaxyID, req.StarID); err != nil {
		return nil, err
	}
	p := planetFromRequest(uuid.New(), galaxyID, req)
	_, err := q.ExecContext(ctx, s.rebind(
		`INSERT INTO planets (`+planetColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`),
		p.ID, p.Name, p.Capacity, p.Path, p.StarID, p.GalaxyID)
	if err != nil {
		return nil, mapError("create planet", err)
	}
	return p, nil
}

// UpdatePlanet replaces the fields of a planet, including its attachment
func (s *Store) UpdatePlanet(ctx context.Context, q Querier, galaxyID, id uuid.UUID, req models.PlanetRequest) (*models.Planet, error) {
	if err := s.checkStar(ctx, q, galaxyID, req.StarID); err != nil {
		return nil, err
	}
	p := planetFromRequest(id, galaxyID, req)
	err := s.exec(ctx, q, "update planet",
		`UPDATE planets SET name = $1, capacity = $2, path = $3, star_id = $4
		 WHERE id = $5 AND galaxy_id = $6`,
		p.Name, p.Capacity, p.Path, p.StarID, p.ID, p.GalaxyID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePlanet deletes a planet
func (s *Store) DeletePlanet(ctx context.Context, q Querier, galaxyID, id uuid.UUID) error {
	return s.exec(ctx, q, "delete planet",
		`DELETE FROM planets WHERE id = $1 AND galaxy_id = $2`, id, galaxyID)
}

func (s *Store) checkStar(ctx context.Context, q Querier, galaxyID uuid.UUID, starID *uuid.UUID) error {
	if starID == nil {
		return nil
	}
	_, err := s.GetStar(ctx, q, galaxyID, *starID)
	return err
}

func planetFromRequest(id, galaxyID uuid.UUID, req models.PlanetRequest) *models.Planet {
	p := &models.Planet{
		ID:       id,
		Name:     req.Name,
		Capacity: req.Capacity,
		Path:     req.Path,
		StarID:   req.StarID,
		GalaxyID: galaxyID,
	}
	p.Path = p.MountPath()
	return p
}
