package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/chazu/gws/internal/models"
)

func scanVariable(row rowScanner) (models.Variable, error) {
	var v models.Variable
	err := row.Scan(&v.ID, &v.Name, &v.Value, &v.StarID)
	return v, err
}

// ListVariables returns the variables of a star
func (s *Store) ListVariables(ctx context.Context, q Querier, starID uuid.UUID) ([]models.Variable, error) {
	return queryList(ctx, s, q, "list variables", scanVariable,
		`SELECT id, name, value, star_id FROM variables WHERE star_id = $1 ORDER BY name`, starID)
}

// GetVariable returns a variable of a star
func (s *Store) GetVariable(ctx context.Context, q Querier, starID, id uuid.UUID) (*models.Variable, error) {
	v, err := scanVariable(q.QueryRowContext(ctx, s.rebind(
		`SELECT id, name, value, star_id FROM variables WHERE id = $1 AND star_id = $2`), id, starID))
	if err != nil {
		return nil, mapError("get variable", err)
	}
	return &v, nil
}

// CreateVariable inserts a variable for a star
func (s *Store) CreateVariable(ctx context.Context, q Querier, starID uuid.UUID, req models.VariableRequest) (*models.Variable, error) {
	v := &models.Variable{ID: uuid.New(), Name: req.Name, Value: req.Value, StarID: starID}
	_, err := q.ExecContext(ctx, s.rebind(
		`INSERT INTO variables (id, name, value, star_id) VALUES ($1, $2, $3, $4)`),
		v.ID, v.Name, v.Value, v.StarID)
	if err != nil {
		return nil, mapError("create variable", err)
	}
	return v, nil
}

// UpdateVariable replaces the name and value of a variable
func (s *Store) UpdateVariable(ctx context.Context, q Querier, starID, id uuid.UUID, req models.VariableRequest) (*models.Variable, error) {
	err := s.exec(ctx, q, "update variable",
		`UPDATE variables SET name = $1, value = $2 WHERE id = $3 AND star_id = $4`,
		req.Name, req.Value, id, starID)
	if err != nil {
		return nil, err
	}
	return &models.Variable{ID: id, Name: req.Name, Value: req.Value, StarID: starID}, nil
}

// DeleteVariable deletes a variable
func (s *Store) DeleteVariable(ctx context.Context, q Querier, starID, id uuid.UUID) error {
	return s.exec(ctx, q, "delete variable",
		`DELETE FROM variables WHERE id = $1 AND star_id = $2`, id, starID)
}
