package resources

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/chazu/gws/internal/models"
	"github.com/chazu/gws/pkg/graph"
)

// ReflectsAnnotation asks the reflector to mirror a source secret
const ReflectsAnnotation = "reflector.v1.k8s.emberstack.com/reflects"

// namespaceNameLabel is set by the API server on every namespace
const namespaceNameLabel = "kubernetes.io/metadata.name"

// Galaxy returns the graph of a galaxy: its namespace, a replica of the
// wildcard certificate and the policy isolating the namespace. All three
// are probed so deleting a galaxy twice succeeds.
func (b *Builder) Galaxy(galaxy *models.Galaxy) (*graph.Graph, error) {
	if galaxy == nil {
		return nil, fmt.Errorf("galaxy cannot be nil")
	}
	ns := NamespaceName(galaxy.ID)

	namespace, err := toUnstructured(&corev1.Namespace{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Namespace"},
		ObjectMeta: metav1.ObjectMeta{
			Name: ns,
			Labels: map[string]string{
				"name":      galaxy.Name,
				"galaxy_id": galaxy.ID.String(),
			},
		},
	})
	if err != nil {
		return nil, err
	}

	tlsSecret, err := toUnstructured(&corev1.Secret{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      TLSSecretName,
			Namespace: ns,
			Annotations: map[string]string{
				ReflectsAnnotation: fmt.Sprintf("%s/%s", b.opts.TLSSourceNamespace, b.opts.TLSSourceSecret),
			},
		},
		Type: corev1.SecretTypeTLS,
		Data: map[string][]byte{
			corev1.TLSCertKey:       {},
			corev1.TLSPrivateKeyKey: {},
		},
	})
	if err != nil {
		return nil, err
	}

	policy, err := toUnstructured(&networkingv1.NetworkPolicy{
		TypeMeta: metav1.TypeMeta{APIVersion: "networking.k8s.io/v1", Kind: "NetworkPolicy"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      NetworkPolicyName,
			Namespace: ns,
		},
		Spec: networkingv1.NetworkPolicySpec{
			PodSelector: metav1.LabelSelector{},
			PolicyTypes: []networkingv1.PolicyType{networkingv1.PolicyTypeIngress},
			Ingress: []networkingv1.NetworkPolicyIngressRule{{
				From: []networkingv1.NetworkPolicyPeer{
					namespacePeer(ns),
					namespacePeer(b.opts.ControlNamespace),
				},
			}},
		},
	})
	if err != nil {
		return nil, err
	}

	probed := graph.Presence{Probe: true}
	return newGraph("galaxy", galaxy.ID.String(), galaxy.ID.String(),
		graph.Node{
			ID:          nodeNamespace,
			Object:      namespace,
			ApplyPolicy: b.forceApply(),
			Presence:    probed,
		},
		graph.Node{
			// Create-only: the reflector owns the content
			ID:          nodeTLSSecret,
			Object:      tlsSecret,
			ApplyPolicy: b.policy(graph.ApplyModeCreate),
			Presence:    probed,
			DependsOn:   []string{nodeNamespace},
		},
		graph.Node{
			ID:          nodeNetworkPolicy,
			Object:      policy,
			ApplyPolicy: b.forceApply(),
			Presence:    probed,
			DependsOn:   []string{nodeNamespace},
		},
	), nil
}

func namespacePeer(namespace string) networkingv1.NetworkPolicyPeer {
	return networkingv1.NetworkPolicyPeer{
		NamespaceSelector: &metav1.LabelSelector{
			MatchLabels: map[string]string{namespaceNameLabel: namespace},
		},
	}
}
