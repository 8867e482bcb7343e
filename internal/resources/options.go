package resources

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"
)

// Options are the cluster-specific settings of the graph builders
type Options struct {
	// ControlNamespace may reach every galaxy namespace
	ControlNamespace string `mapstructure:"control_namespace" json:"control_namespace"`

	// DNSNamespace and DNSConfigMap locate the CoreDNS override ConfigMap
	DNSNamespace string `mapstructure:"dns_namespace" json:"dns_namespace"`
	DNSConfigMap string `mapstructure:"dns_configmap" json:"dns_configmap"`

	// PrivateDomain is the cluster-internal domain private stars live under
	PrivateDomain string `mapstructure:"private_domain" json:"private_domain"`

	// PublicDomain is the domain public stars are exposed under
	PublicDomain string `mapstructure:"public_domain" json:"public_domain"`

	// TLSSourceNamespace and TLSSourceSecret locate the certificate
	// mirrored into every galaxy
	TLSSourceNamespace string `mapstructure:"tls_source_namespace" json:"tls_source_namespace"`
	TLSSourceSecret    string `mapstructure:"tls_source_secret" json:"tls_source_secret"`

	// IngressMiddlewares and IngressEntrypoints are set on every Ingress
	IngressMiddlewares string `mapstructure:"ingress_middlewares" json:"ingress_middlewares"`
	IngressEntrypoints string `mapstructure:"ingress_entrypoints" json:"ingress_entrypoints"`

	// StorageClass and StorageSize are used for every claim
	StorageClass string `mapstructure:"storage_class" json:"storage_class"`
	StorageSize  string `mapstructure:"storage_size" json:"storage_size"`

	// FieldManager owns the fields the builders write
	FieldManager string `mapstructure:"field_manager" json:"field_manager"`
}

// DefaultOptions returns the settings of a single-node k3s cluster
func DefaultOptions() Options {
	return Options{
		ControlNamespace:   "kube-system",
		DNSNamespace:       "kube-system",
		DNSConfigMap:       "coredns-custom",
		PrivateDomain:      "gws.internal",
		PublicDomain:       "localhost",
		TLSSourceNamespace: "default",
		TLSSourceSecret:    "stars-tls-secret",
		IngressMiddlewares: "default-redirect@kubernetescrd",
		IngressEntrypoints: "web, websecure",
		StorageClass:       "local-path",
		StorageSize:        "1G",
		FieldManager:       "gws-api",
	}
}

// Validate checks that every option is usable
func (o Options) Validate() error {
	required := map[string]string{
		"control_namespace":    o.ControlNamespace,
		"dns_namespace":        o.DNSNamespace,
		"dns_configmap":        o.DNSConfigMap,
		"private_domain":       o.PrivateDomain,
		"public_domain":        o.PublicDomain,
		"tls_source_namespace": o.TLSSourceNamespace,
		"tls_source_secret":    o.TLSSourceSecret,
		"storage_class":        o.StorageClass,
		"field_manager":        o.FieldManager,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("resources.%s is required", name)
		}
	}
	if _, err := resource.ParseQuantity(o.StorageSize); err != nil {
		return fmt.Errorf("resources.storage_size: %w", err)
	}
	return nil
}
