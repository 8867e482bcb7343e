/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/chazu/gws/internal/models"
	"github.com/chazu/gws/internal/resources"
	"github.com/chazu/gws/pkg/graph"
)

type renderOptions struct {
	file     string
	galaxyID string
}

func newRenderCommand(opts *cliOptions) *cobra.Command {
	ro := &renderOptions{}

	cmd := &cobra.Command{
		Use:       "render (galaxy|star|planet|variable)",
		Short:     "Print the cluster objects of an entity as YAML",
		Long:      "Reads an entity as JSON or YAML from --file (or stdin) and prints the graph the API would reconcile for it. The cluster is not contacted.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"galaxy", "star", "planet", "variable"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, z, err := opts.setup()
			if err != nil {
				return err
			}
			defer func() { _ = z.Sync() }()

			builder, err := resources.NewBuilder(cfg.Resources)
			if err != nil {
				return err
			}

			data, err := ro.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			g, err := ro.build(builder, args[0], data)
			if err != nil {
				return err
			}

			out, err := resources.Render(g)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&ro.file, "file", "f", "-", "entity file, - for stdin")
	cmd.Flags().StringVar(&ro.galaxyID, "galaxy", "", "galaxy id of the variable's star")
	return cmd
}

func (ro *renderOptions) read(stdin io.Reader) ([]byte, error) {
	if ro.file == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(ro.file)
}

func (ro *renderOptions) build(b *resources.Builder, kind string, data []byte) (*graph.Graph, error) {
	switch kind {
	case "galaxy":
		var galaxy models.Galaxy
		if err := yaml.Unmarshal(data, &galaxy); err != nil {
			return nil, fmt.Errorf("decode galaxy: %w", err)
		}
		return b.Galaxy(&galaxy)
	case "star":
		var star models.Star
		if err := yaml.Unmarshal(data, &star); err != nil {
			return nil, fmt.Errorf("decode star: %w", err)
		}
		return b.Star(&star)
	case "planet":
		var planet models.Planet
		if err := yaml.Unmarshal(data, &planet); err != nil {
			return nil, fmt.Errorf("decode planet: %w", err)
		}
		return b.Planet(&planet)
	case "variable":
		galaxyID, err := uuid.Parse(ro.galaxyID)
		if err != nil {
			return nil, fmt.Errorf("--galaxy must be a galaxy id: %w", err)
		}
		var variable models.Variable
		if err := yaml.Unmarshal(data, &variable); err != nil {
			return nil, fmt.Errorf("decode variable: %w", err)
		}
		return b.Variable(&variable, galaxyID)
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
}
