package resources

import (
	"fmt"

	"github.com/google/uuid"
)

// Object names shared with other tools. They must not change.

// NamespaceName returns the namespace of a galaxy
func NamespaceName(galaxyID uuid.UUID) string {
	return fmt.Sprintf("galaxy-%s", galaxyID)
}

// StarName names the Deployment, Service and Ingress of a star
func StarName(starID uuid.UUID) string {
	return fmt.Sprintf("star-%s", starID)
}

// VarsSecretName names the Secret holding a star's variables
func VarsSecretName(starID uuid.UUID) string {
	return fmt.Sprintf("star-%s-vars", starID)
}

// ContainerName names the single container of a star
func ContainerName(starID uuid.UUID) string {
	return fmt.Sprintf("star-container-%s", starID)
}

// DNSOverrideKey is the key of a star's entry in the DNS override ConfigMap
func DNSOverrideKey(starID uuid.UUID) string {
	return fmt.Sprintf("star-%s.override", starID)
}

// ServiceHost is the cluster DNS name of a star's Service
func ServiceHost(galaxyID, starID uuid.UUID) string {
	return fmt.Sprintf("%s.%s.svc.cluster.local", StarName(starID), NamespaceName(galaxyID))
}

// ClaimName names the PersistentVolumeClaim of a planet
func ClaimName(planetID uuid.UUID) string {
	return fmt.Sprintf("planet-%s", planetID)
}

// VolumeName names the pod volume a planet is mounted through
func VolumeName(planetID uuid.UUID) string {
	return fmt.Sprintf("planet-volume-%s", planetID)
}

// PlanetFieldManager is the field manager owning a planet's mount on a
// Deployment, so the mount can be removed without touching other fields
func PlanetFieldManager(planetID uuid.UUID) string {
	return fmt.Sprintf("gws-api-planet-%s", planetID)
}

const (
	// TLSSecretName is the replica of the wildcard certificate in every
	// galaxy namespace
	TLSSecretName = "stars-tls-secret-replica"

	// NetworkPolicyName isolates a galaxy namespace
	NetworkPolicyName = "galaxy-isolation"

	// StarIDLabel carries the star id on every object of a star
	StarIDLabel = "star_id"
)

// Node IDs
const (
	nodeNamespace     = "namespace"
	nodeTLSSecret     = "tls-secret"
	nodeNetworkPolicy = "network-policy"
	nodeVarsSecret    = "vars-secret"
	nodeDeployment    = "deployment"
	nodeService       = "service"
	nodeIngress       = "ingress"
	nodeDNS           = "dns-override"
	nodeClaim         = "claim"
)

func mountNodeID(starID uuid.UUID) string {
	return fmt.Sprintf("mount-%s", StarName(starID))
}

func variableNodeID(name string) string {
	return fmt.Sprintf("var-%s", name)
}

func restartNodeID(starID uuid.UUID) string {
	return fmt.Sprintf("restart-%s", StarName(starID))
}
