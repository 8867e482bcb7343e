package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GWS_DATABASE_DSN
const EnvPrefix = "GWS"

// Load loads configuration from a YAML file, if configPath is set, and GWS_*
// environment variables, then validates it. Environment variables take
// precedence over the file, the file over the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment variables can override
// keys the file does not mention
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.user_header", d.Server.UserHeader)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.migrate_on_start", d.Database.MigrateOnStart)

	v.SetDefault("cluster.kubeconfig", d.Cluster.Kubeconfig)
	v.SetDefault("cluster.dry_run", d.Cluster.DryRun)
	v.SetDefault("cluster.max_concurrency", d.Cluster.MaxConcurrency)

	r := d.Resources
	v.SetDefault("resources.control_namespace", r.ControlNamespace)
	v.SetDefault("resources.dns_namespace", r.DNSNamespace)
	v.SetDefault("resources.dns_configmap", r.DNSConfigMap)
	v.SetDefault("resources.private_domain", r.PrivateDomain)
	v.SetDefault("resources.public_domain", r.PublicDomain)
	v.SetDefault("resources.tls_source_namespace", r.TLSSourceNamespace)
	v.SetDefault("resources.tls_source_secret", r.TLSSourceSecret)
	v.SetDefault("resources.ingress_middlewares", r.IngressMiddlewares)
	v.SetDefault("resources.ingress_entrypoints", r.IngressEntrypoints)
	v.SetDefault("resources.storage_class", r.StorageClass)
	v.SetDefault("resources.storage_size", r.StorageSize)
	v.SetDefault("resources.field_manager", r.FieldManager)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.verbosity", d.Logging.Verbosity)
	v.SetDefault("logging.format", string(d.Logging.Format))
	v.SetDefault("logging.output_paths", d.Logging.OutputPaths)
	v.SetDefault("logging.disable_caller", d.Logging.DisableCaller)
	v.SetDefault("logging.disable_stacktrace", d.Logging.DisableStacktrace)
}
