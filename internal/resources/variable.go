package resources

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/chazu/gws/internal/models"
	"github.com/chazu/gws/pkg/graph"
)

// Variable returns the graph of a variable: its key in the star's vars
// Secret and a restart of the star so the new environment is picked up.
// The restart only fires when the key actually changed.
func (b *Builder) Variable(variable *models.Variable, galaxyID uuid.UUID) (*graph.Graph, error) {
	if variable == nil {
		return nil, fmt.Errorf("variable cannot be nil")
	}
	if variable.Name == "" {
		return nil, fmt.Errorf("variable name is required")
	}
	ns := NamespaceName(galaxyID)
	secret := VarsSecretName(variable.StarID)
	varNode := variableNodeID(variable.Name)

	encoded := base64.StdEncoding.EncodeToString([]byte(variable.Value))
	patch := target("v1", "Secret", ns, secret, map[string]any{
		"data": map[string]any{variable.Name: encoded},
	})
	retract := target("v1", "Secret", ns, secret, map[string]any{
		"data": map[string]any{variable.Name: nil},
	})
	deployment := target("apps/v1", "Deployment", ns, StarName(variable.StarID), nil)

	return newGraph("variable", variable.ID.String(), galaxyID.String(),
		graph.Node{
			ID:      varNode,
			Kind:    graph.NodeKindPatch,
			Object:  *patch,
			Retract: retract,
			ApplyPolicy: graph.ApplyPolicy{
				Mode:         graph.ApplyModeMerge,
				FieldManager: b.opts.FieldManager,
			},
		},
		graph.Node{
			ID:        restartNodeID(variable.StarID),
			Kind:      graph.NodeKindRestart,
			Object:    *deployment,
			DependsOn: []string{varNode},
		},
	), nil
}
