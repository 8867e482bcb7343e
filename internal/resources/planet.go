package resources

import (
	"fmt"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/utils/ptr"

	"github.com/chazu/gws/internal/models"
	"github.com/chazu/gws/pkg/graph"
)

// Planet returns the graph of a planet: its claim and, while the planet is
// attached, the mount on the star's Deployment. Moving a planet to another
// star changes the mount node's ID, so an update with the previous graph
// unmounts it from the old star.
func (b *Builder) Planet(planet *models.Planet) (*graph.Graph, error) {
	if planet == nil {
		return nil, fmt.Errorf("planet cannot be nil")
	}
	ns := NamespaceName(planet.GalaxyID)

	claim, err := toUnstructured(&corev1.PersistentVolumeClaim{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "PersistentVolumeClaim"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      ClaimName(planet.ID),
			Namespace: ns,
			Labels: map[string]string{
				"planet_id": planet.ID.String(),
				"galaxy_id": planet.GalaxyID.String(),
			},
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes:      []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			StorageClassName: ptr.To(b.opts.StorageClass),
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse(b.opts.StorageSize),
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	nodes := []graph.Node{{
		ID:          nodeClaim,
		Object:      claim,
		ApplyPolicy: b.policy(graph.ApplyModeCreate),
	}}

	if planet.IsAttached() {
		starID := *planet.StarID
		nodes = append(nodes, graph.Node{
			ID:      mountNodeID(starID),
			Kind:    graph.NodeKindPatch,
			Object:  *mountPatch(planet, starID, ns, true),
			Retract: mountPatch(planet, starID, ns, false),
			ApplyPolicy: graph.ApplyPolicy{
				Mode:           graph.ApplyModeApply,
				ConflictPolicy: graph.ConflictPolicyForce,
				FieldManager:   PlanetFieldManager(planet.ID),
			},
			DependsOn: []string{nodeClaim},
		})
	}

	return newGraph("planet", planet.ID.String(), planet.GalaxyID.String(), nodes...), nil
}

// mountPatch is the apply configuration of a planet's mount. Applied
// without the volume under the planet's own field manager it removes
// exactly what the mounted form added.
func mountPatch(planet *models.Planet, starID uuid.UUID, ns string, mounted bool) *unstructured.Unstructured {
	volumeMounts := []any{}
	volumes := []any{}
	if mounted {
		volumeMounts = append(volumeMounts, map[string]any{
			"name":      VolumeName(planet.ID),
			"mountPath": planet.MountPath(),
		})
		volumes = append(volumes, map[string]any{
			"name": VolumeName(planet.ID),
			"persistentVolumeClaim": map[string]any{
				"claimName": ClaimName(planet.ID),
			},
		})
	}

	return target("apps/v1", "Deployment", ns, StarName(starID), map[string]any{
		"spec": map[string]any{
			"selector": map[string]any{
				"matchLabels": map[string]any{StarIDLabel: starID.String()},
			},
			"template": map[string]any{
				"spec": map[string]any{
					"containers": []any{
						map[string]any{
							"name":         ContainerName(starID),
							"volumeMounts": volumeMounts,
						},
					},
					"volumes": volumes,
				},
			},
		},
	})
}
