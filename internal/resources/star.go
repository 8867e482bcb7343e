package resources

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/chazu/gws/internal/models"
	"github.com/chazu/gws/pkg/graph"
)

// Traefik annotations set on every Ingress
const (
	MiddlewaresAnnotation = "traefik.ingress.kubernetes.io/router.middlewares"
	EntrypointsAnnotation = "traefik.ingress.kubernetes.io/router.entrypoints"
)

// Star returns the graph of a star. The Ingress is a member while the star
// is public and the DNS override while it is private; both may be members
// at once.
func (b *Builder) Star(star *models.Star) (*graph.Graph, error) {
	if star == nil {
		return nil, fmt.Errorf("star cannot be nil")
	}
	ns := NamespaceName(star.GalaxyID)
	name := StarName(star.ID)
	labels := starLabels(star)

	secret, err := toUnstructured(&corev1.Secret{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      VarsSecretName(star.ID),
			Namespace: ns,
			Labels:    labels,
		},
		Type: corev1.SecretTypeOpaque,
	})
	if err != nil {
		return nil, err
	}

	deployment, err := toUnstructured(b.deployment(star, ns, labels))
	if err != nil {
		return nil, err
	}

	service, err := toUnstructured(&corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: ns,
			Labels:    labels,
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: StarSelector(star.ID),
			Ports: []corev1.ServicePort{{
				Protocol:   corev1.ProtocolTCP,
				Port:       star.Port,
				TargetPort: intstr.FromInt32(star.Port),
			}},
		},
	})
	if err != nil {
		return nil, err
	}

	ingress, err := toUnstructured(b.ingress(star, ns, labels))
	if err != nil {
		return nil, err
	}

	dns, retract := b.dnsOverride(star)

	return newGraph("star", star.ID.String(), star.GalaxyID.String(),
		graph.Node{
			// Variables are merged into the Secret, so it is never rewritten
			ID:          nodeVarsSecret,
			Object:      secret,
			ApplyPolicy: b.policy(graph.ApplyModeCreate),
		},
		graph.Node{
			ID:          nodeDeployment,
			Object:      deployment,
			ApplyPolicy: b.forceApply(),
			DependsOn:   []string{nodeVarsSecret},
		},
		graph.Node{
			ID:          nodeService,
			Object:      service,
			ApplyPolicy: b.forceApply(),
			DependsOn:   []string{nodeDeployment},
		},
		graph.Node{
			ID:          nodeIngress,
			Object:      ingress,
			ApplyPolicy: b.policy(graph.ApplyModeReplace),
			Presence:    graph.Presence{Optional: true, Enabled: star.IsPublic()},
			DependsOn:   []string{nodeService},
		},
		graph.Node{
			ID:      nodeDNS,
			Kind:    graph.NodeKindPatch,
			Object:  *dns,
			Retract: retract,
			ApplyPolicy: graph.ApplyPolicy{
				Mode:         graph.ApplyModeMerge,
				FieldManager: b.opts.FieldManager,
				CreateTarget: true,
			},
			Presence:  graph.Presence{Optional: true, Enabled: star.IsPrivate()},
			DependsOn: []string{nodeService},
		},
	), nil
}

func starLabels(star *models.Star) map[string]string {
	return map[string]string{
		"star_name": star.Name,
		StarIDLabel: star.ID.String(),
		"galaxy_id": star.GalaxyID.String(),
	}
}

// StarSelector selects the pods and Deployment of a star
func StarSelector(starID uuid.UUID) map[string]string {
	return map[string]string{StarIDLabel: starID.String()}
}

func (b *Builder) deployment(star *models.Star, ns string, labels map[string]string) *appsv1.Deployment {
	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      StarName(star.ID),
			Namespace: ns,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To[int32](1),
			Selector: &metav1.LabelSelector{
				MatchLabels: StarSelector(star.ID),
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					EnableServiceLinks: ptr.To(false),
					Containers: []corev1.Container{{
						Name:  ContainerName(star.ID),
						Image: strings.ToLower(star.Nebula),
						Env: []corev1.EnvVar{
							{Name: "ADDRESS", Value: "0.0.0.0"},
							{Name: "PORT", Value: fmt.Sprintf("%d", star.Port)},
						},
						EnvFrom: []corev1.EnvFromSource{{
							SecretRef: &corev1.SecretEnvSource{
								LocalObjectReference: corev1.LocalObjectReference{Name: VarsSecretName(star.ID)},
							},
						}},
						Ports: []corev1.ContainerPort{{
							ContainerPort: star.Port,
							Protocol:      corev1.ProtocolTCP,
						}},
					}},
				},
			},
		},
	}
}

// ingress builds the Ingress of a public star. It is built for every star
// so a disabled member still knows which object to remove.
func (b *Builder) ingress(star *models.Star, ns string, labels map[string]string) *networkingv1.Ingress {
	host := ""
	if star.IsPublic() {
		host = fmt.Sprintf("%s.%s", *star.PublicDomain, b.opts.PublicDomain)
	}
	pathType := networkingv1.PathTypePrefix

	return &networkingv1.Ingress{
		TypeMeta: metav1.TypeMeta{APIVersion: "networking.k8s.io/v1", Kind: "Ingress"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      StarName(star.ID),
			Namespace: ns,
			Labels:    labels,
			Annotations: map[string]string{
				MiddlewaresAnnotation: b.opts.IngressMiddlewares,
				EntrypointsAnnotation: b.opts.IngressEntrypoints,
			},
		},
		Spec: networkingv1.IngressSpec{
			TLS: []networkingv1.IngressTLS{{
				Hosts:      []string{host},
				SecretName: TLSSecretName,
			}},
			Rules: []networkingv1.IngressRule{{
				Host: host,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     "/",
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: StarName(star.ID),
									Port: networkingv1.ServiceBackendPort{Number: star.Port},
								},
							},
						}},
					},
				},
			}},
		},
	}
}

// dnsOverride returns the merge patch adding a star's entry to the CoreDNS
// override ConfigMap, and the patch removing it. The patch doubles as the
// initial content when the ConfigMap does not exist yet.
func (b *Builder) dnsOverride(star *models.Star) (*unstructured.Unstructured, *unstructured.Unstructured) {
	key := DNSOverrideKey(star.ID)
	value := ""
	if star.IsPrivate() {
		value = b.coreDNSTemplate(star)
	}

	patch := target("v1", "ConfigMap", b.opts.DNSNamespace, b.opts.DNSConfigMap, map[string]any{
		"data": map[string]any{key: value},
	})
	retract := target("v1", "ConfigMap", b.opts.DNSNamespace, b.opts.DNSConfigMap, map[string]any{
		"data": map[string]any{key: nil},
	})
	return patch, retract
}

// coreDNSTemplate answers queries for the star's private name with a CNAME
// to its Service in the galaxy namespace
func (b *Builder) coreDNSTemplate(star *models.Star) string {
	fqdn := fmt.Sprintf("%s.%s", *star.PrivateDomain, b.opts.PrivateDomain)
	pattern := strings.ReplaceAll(fqdn, ".", `\.`)
	return fmt.Sprintf(`template IN ANY %s {
  match "^%s\.$"
  answer "{{ .Name }} 60 IN CNAME %s"
}
`, fqdn, pattern, ServiceHost(star.GalaxyID, star.ID))
}
