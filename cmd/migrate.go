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
	"database/sql"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/chazu/gws/internal/catalog"
)

func newMigrateCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the catalog schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, opts, func(db *sql.DB, dialect catalog.Dialect, logger logr.Logger) error {
				if err := catalog.Migrate(db, dialect); err != nil {
					return err
				}
				logger.Info("Catalog is up to date")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, opts, func(db *sql.DB, dialect catalog.Dialect, logger logr.Logger) error {
				if err := catalog.MigrateDown(db, dialect); err != nil {
					return err
				}
				logger.Info("Catalog migrations reverted")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, opts, func(db *sql.DB, dialect catalog.Dialect, _ logr.Logger) error {
				version, dirty, err := catalog.Version(db, dialect)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}

func withCatalog(cmd *cobra.Command, opts *cliOptions, fn func(*sql.DB, catalog.Dialect, logr.Logger) error) error {
	cfg, logger, z, err := opts.setup()
	if err != nil {
		return err
	}
	defer func() { _ = z.Sync() }()

	db, dialect, err := catalog.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return fn(db, dialect, logger.WithName("migrate"))
}
