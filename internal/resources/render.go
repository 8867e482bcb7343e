package resources

import (
	"bytes"
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/chazu/gws/pkg/graph"
)

// Render writes the members of g as a multi-document YAML stream in apply
// order. Disabled members are left out. Patch and restart nodes are
// rendered as the content they write, headed by a comment naming the node.
func Render(g *graph.Graph) ([]byte, error) {
	dag, err := graph.BuildDAG(g)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s (hash %s)\n", g.Metadata.Name, g.Metadata.RenderHash)
	for _, id := range dag.GetOrder() {
		node, _ := dag.GetNode(id)
		if !node.IsEnabled() {
			continue
		}

		data, err := yaml.Marshal(node.Object.Object)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", id, err)
		}
		buf.WriteString("---\n")
		fmt.Fprintf(&buf, "# node: %s kind: %s\n", node.ID, node.EffectiveKind())
		buf.Write(data)
	}
	return buf.Bytes(), nil
}
