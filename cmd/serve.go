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
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"github.com/chazu/gws/internal/api"
	"github.com/chazu/gws/internal/catalog"
	"github.com/chazu/gws/internal/resources"
	"github.com/chazu/gws/pkg/reconcile"
)

func newServeCommand(opts *cliOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on, overrides server.addr")
	return cmd
}

func runServe(cmd *cobra.Command, opts *cliOptions, addr string) error {
	cfg, logger, z, err := opts.setup()
	if err != nil {
		return err
	}
	defer func() { _ = z.Sync() }()

	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = addr
	}
	setupLog := logger.WithName("setup")
	ctx := ctrl.SetupSignalHandler()

	db, dialect, err := catalog.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if cfg.Database.MigrateOnStart {
		setupLog.Info("Applying catalog migrations", "driver", cfg.Database.Driver)
		if err := catalog.Migrate(db, dialect); err != nil {
			return err
		}
	}

	restConfig, err := clusterConfig(cfg.Cluster.Kubeconfig)
	if err != nil {
		return fmt.Errorf("load cluster config: %w", err)
	}
	cl, err := client.NewWithWatch(restConfig, client.Options{Scheme: scheme})
	if err != nil {
		return fmt.Errorf("create cluster client: %w", err)
	}

	builder, err := resources.NewBuilder(cfg.Resources)
	if err != nil {
		return err
	}
	engine := reconcile.NewEngine(cl,
		reconcile.WithDryRun(cfg.Cluster.DryRun),
		reconcile.WithMaxConcurrency(cfg.Cluster.MaxConcurrency),
	)

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(api.RouterConfig{
		DB:         db,
		Store:      catalog.New(dialect),
		Engine:     engine,
		Builder:    builder,
		Cluster:    cl,
		Logger:     logger.WithName("http"),
		UserHeader: cfg.Server.UserHeader,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		setupLog.Info("Starting HTTP server", "addr", cfg.Server.Addr, "dryRun", cfg.Cluster.DryRun)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	setupLog.Info("Shutting down HTTP server", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// clusterConfig loads the REST config from path, or through the usual
// lookup when path is empty
func clusterConfig(path string) (*rest.Config, error) {
	if path != "" {
		return clientcmd.BuildConfigFromFlags("", path)
	}
	return ctrl.GetConfig()
}
