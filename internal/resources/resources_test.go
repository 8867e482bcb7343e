package resources

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/chazu/gws/internal/models"
	"github.com/chazu/gws/pkg/graph"
)

var (
	galaxyID = uuid.MustParse("6b3f2a4e-0d51-4c57-9a38-1f0e2d7c9b10")
	starID   = uuid.MustParse("0f4a6c1e-8b2d-4e3f-a5b6-7c8d9e0f1a2b")
	planetID = uuid.MustParse("9d8c7b6a-5f4e-4d3c-b2a1-0f9e8d7c6b5a")
)

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(DefaultOptions())
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	return b
}

func testStar(public, private string) *models.Star {
	s := &models.Star{
		ID:       starID,
		Name:     "web",
		Nebula:   "Docker.io/Library/Nginx:1.27",
		Port:     8080,
		GalaxyID: galaxyID,
	}
	if public != "" {
		s.PublicDomain = &public
	}
	if private != "" {
		s.PrivateDomain = &private
	}
	return s
}

func mustNode(t *testing.T, g *graph.Graph, id string) *graph.Node {
	t.Helper()
	n, ok := g.Node(id)
	if !ok {
		t.Fatalf("graph %s has no node %s", g.Metadata.Name, id)
	}
	return n
}

func nestedString(t *testing.T, u *unstructured.Unstructured, fields ...string) string {
	t.Helper()
	v, found, err := unstructured.NestedString(u.Object, fields...)
	if err != nil || !found {
		t.Fatalf("%s: field %v not found (err %v)", u.GetName(), fields, err)
	}
	return v
}

func TestNaming(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{NamespaceName(galaxyID), "galaxy-6b3f2a4e-0d51-4c57-9a38-1f0e2d7c9b10"},
		{StarName(starID), "star-0f4a6c1e-8b2d-4e3f-a5b6-7c8d9e0f1a2b"},
		{VarsSecretName(starID), "star-0f4a6c1e-8b2d-4e3f-a5b6-7c8d9e0f1a2b-vars"},
		{ContainerName(starID), "star-container-0f4a6c1e-8b2d-4e3f-a5b6-7c8d9e0f1a2b"},
		{DNSOverrideKey(starID), "star-0f4a6c1e-8b2d-4e3f-a5b6-7c8d9e0f1a2b.override"},
		{ServiceHost(galaxyID, starID), "star-0f4a6c1e-8b2d-4e3f-a5b6-7c8d9e0f1a2b.galaxy-6b3f2a4e-0d51-4c57-9a38-1f0e2d7c9b10.svc.cluster.local"},
		{ClaimName(planetID), "planet-9d8c7b6a-5f4e-4d3c-b2a1-0f9e8d7c6b5a"},
		{VolumeName(planetID), "planet-volume-9d8c7b6a-5f4e-4d3c-b2a1-0f9e8d7c6b5a"},
		{PlanetFieldManager(planetID), "gws-api-planet-9d8c7b6a-5f4e-4d3c-b2a1-0f9e8d7c6b5a"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("DefaultOptions().Validate() error = %v", err)
	}

	opts := DefaultOptions()
	opts.StorageSize = "lots"
	if err := opts.Validate(); err == nil {
		t.Error("expected error for invalid storage size")
	}

	opts = DefaultOptions()
	opts.DNSConfigMap = ""
	if _, err := NewBuilder(opts); err == nil || !strings.Contains(err.Error(), "dns_configmap") {
		t.Errorf("NewBuilder() error = %v, want dns_configmap error", err)
	}
}

func TestGalaxyGraph(t *testing.T) {
	b := testBuilder(t)
	g, err := b.Galaxy(&models.Galaxy{ID: galaxyID, Name: "andromeda", UserID: uuid.New()})
	if err != nil {
		t.Fatalf("Galaxy() error = %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("graph is invalid: %v", err)
	}

	if g.Metadata.LockKey != galaxyID.String() {
		t.Errorf("LockKey = %q, want galaxy id", g.Metadata.LockKey)
	}
	if g.Metadata.Name != "galaxy/"+galaxyID.String() {
		t.Errorf("Name = %q", g.Metadata.Name)
	}

	for _, n := range g.Nodes {
		if !n.IsProbed() {
			t.Errorf("node %s must be probed", n.ID)
		}
	}

	ns := mustNode(t, g, nodeNamespace)
	if ns.Object.GetName() != NamespaceName(galaxyID) {
		t.Errorf("namespace name = %q", ns.Object.GetName())
	}
	if got := ns.Object.GetLabels()["galaxy_id"]; got != galaxyID.String() {
		t.Errorf("galaxy_id label = %q", got)
	}
	if _, found := ns.Object.Object["status"]; found {
		t.Error("status must be stripped")
	}
	if _, found, _ := unstructured.NestedFieldNoCopy(ns.Object.Object, "metadata", "creationTimestamp"); found {
		t.Error("creationTimestamp must be stripped")
	}

	tls := mustNode(t, g, nodeTLSSecret)
	if tls.ApplyPolicy.Mode != graph.ApplyModeCreate {
		t.Errorf("tls secret mode = %s, want Create", tls.ApplyPolicy.Mode)
	}
	if got := tls.Object.GetAnnotations()[ReflectsAnnotation]; got != "default/stars-tls-secret" {
		t.Errorf("reflects annotation = %q", got)
	}
	if got := nestedString(t, &tls.Object, "type"); got != "kubernetes.io/tls" {
		t.Errorf("secret type = %q", got)
	}

	policy := mustNode(t, g, nodeNetworkPolicy)
	peers, _, _ := unstructured.NestedSlice(policy.Object.Object, "spec", "ingress")
	if len(peers) != 1 {
		t.Fatalf("expected one ingress rule, got %d", len(peers))
	}
	from := peers[0].(map[string]any)["from"].([]any)
	var allowed []string
	for _, p := range from {
		labels := p.(map[string]any)["namespaceSelector"].(map[string]any)["matchLabels"].(map[string]any)
		allowed = append(allowed, labels[namespaceNameLabel].(string))
	}
	want := []string{NamespaceName(galaxyID), "kube-system"}
	if strings.Join(allowed, ",") != strings.Join(want, ",") {
		t.Errorf("allowed namespaces = %v, want %v", allowed, want)
	}

	dag, err := graph.BuildDAG(g)
	if err != nil {
		t.Fatalf("BuildDAG() error = %v", err)
	}
	if dag.GetOrder()[0] != nodeNamespace {
		t.Errorf("namespace must come first, got %v", dag.GetOrder())
	}
}

func TestStarGraph(t *testing.T) {
	b := testBuilder(t)
	g, err := b.Star(testStar("", ""))
	if err != nil {
		t.Fatalf("Star() error = %v", err)
	}
	dag, err := graph.BuildDAG(g)
	if err != nil {
		t.Fatalf("BuildDAG() error = %v", err)
	}

	wantOrder := []string{nodeVarsSecret, nodeDeployment, nodeService, nodeIngress, nodeDNS}
	if strings.Join(dag.GetOrder(), ",") != strings.Join(wantOrder, ",") {
		t.Errorf("order = %v, want %v", dag.GetOrder(), wantOrder)
	}

	secret := mustNode(t, g, nodeVarsSecret)
	if secret.ApplyPolicy.Mode != graph.ApplyModeCreate {
		t.Errorf("vars secret must be create-only, got %s", secret.ApplyPolicy.Mode)
	}

	deploy := mustNode(t, g, nodeDeployment)
	containers, _, _ := unstructured.NestedSlice(deploy.Object.Object, "spec", "template", "spec", "containers")
	if len(containers) != 1 {
		t.Fatalf("expected one container, got %d", len(containers))
	}
	container := containers[0].(map[string]any)
	if container["name"] != ContainerName(starID) {
		t.Errorf("container name = %v", container["name"])
	}
	if container["image"] != "docker.io/library/nginx:1.27" {
		t.Errorf("image = %v, want lower-cased nebula", container["image"])
	}
	env := container["env"].([]any)
	if env[0].(map[string]any)["value"] != "0.0.0.0" || env[1].(map[string]any)["value"] != "8080" {
		t.Errorf("env = %v", env)
	}
	links, _, _ := unstructured.NestedBool(deploy.Object.Object, "spec", "template", "spec", "enableServiceLinks")
	if links {
		t.Error("service links must be disabled")
	}
	selector, _, _ := unstructured.NestedStringMap(deploy.Object.Object, "spec", "selector", "matchLabels")
	if selector["star_id"] != starID.String() {
		t.Errorf("selector = %v", selector)
	}

	ingress := mustNode(t, g, nodeIngress)
	if ingress.IsEnabled() {
		t.Error("ingress must be disabled for a star without public domain")
	}
	dns := mustNode(t, g, nodeDNS)
	if dns.IsEnabled() {
		t.Error("dns override must be disabled for a star without private domain")
	}
}

func TestStarExposure(t *testing.T) {
	tests := []struct {
		name        string
		star        *models.Star
		wantIngress bool
		wantDNS     bool
	}{
		{name: "none", star: testStar("", "")},
		{name: "public", star: testStar("shop", ""), wantIngress: true},
		{name: "private", star: testStar("", "db"), wantDNS: true},
		{name: "both", star: testStar("shop", "db"), wantIngress: true, wantDNS: true},
	}

	b := testBuilder(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := b.Star(tt.star)
			if err != nil {
				t.Fatalf("Star() error = %v", err)
			}
			if got := mustNode(t, g, nodeIngress).IsEnabled(); got != tt.wantIngress {
				t.Errorf("ingress enabled = %v, want %v", got, tt.wantIngress)
			}
			if got := mustNode(t, g, nodeDNS).IsEnabled(); got != tt.wantDNS {
				t.Errorf("dns enabled = %v, want %v", got, tt.wantDNS)
			}
		})
	}
}

func TestStarIngress(t *testing.T) {
	g, err := testBuilder(t).Star(testStar("shop", ""))
	if err != nil {
		t.Fatalf("Star() error = %v", err)
	}
	ingress := mustNode(t, g, nodeIngress)

	if ingress.ApplyPolicy.Mode != graph.ApplyModeReplace {
		t.Errorf("ingress mode = %s, want Replace", ingress.ApplyPolicy.Mode)
	}
	annotations := ingress.Object.GetAnnotations()
	if annotations[MiddlewaresAnnotation] != "default-redirect@kubernetescrd" {
		t.Errorf("middlewares = %q", annotations[MiddlewaresAnnotation])
	}
	if annotations[EntrypointsAnnotation] != "web, websecure" {
		t.Errorf("entrypoints = %q", annotations[EntrypointsAnnotation])
	}

	rules, _, _ := unstructured.NestedSlice(ingress.Object.Object, "spec", "rules")
	if host := rules[0].(map[string]any)["host"]; host != "shop.localhost" {
		t.Errorf("host = %v", host)
	}
	tls, _, _ := unstructured.NestedSlice(ingress.Object.Object, "spec", "tls")
	if secret := tls[0].(map[string]any)["secretName"]; secret != TLSSecretName {
		t.Errorf("tls secret = %v", secret)
	}
}

func TestStarDNSOverride(t *testing.T) {
	g, err := testBuilder(t).Star(testStar("", "db"))
	if err != nil {
		t.Fatalf("Star() error = %v", err)
	}
	dns := mustNode(t, g, nodeDNS)

	if dns.EffectiveKind() != graph.NodeKindPatch || dns.ApplyPolicy.Mode != graph.ApplyModeMerge {
		t.Fatalf("dns node must be a merge patch, got %s/%s", dns.EffectiveKind(), dns.ApplyPolicy.Mode)
	}
	if !dns.ApplyPolicy.CreateTarget {
		t.Error("dns node must create the ConfigMap when missing")
	}
	if dns.Object.GetNamespace() != "kube-system" || dns.Object.GetName() != "coredns-custom" {
		t.Errorf("dns target = %s/%s", dns.Object.GetNamespace(), dns.Object.GetName())
	}

	value := nestedString(t, &dns.Object, "data", DNSOverrideKey(starID))
	for _, want := range []string{
		"template IN ANY db.gws.internal {",
		`match "^db\.gws\.internal\.$"`,
		`IN CNAME star-0f4a6c1e-8b2d-4e3f-a5b6-7c8d9e0f1a2b.galaxy-6b3f2a4e-0d51-4c57-9a38-1f0e2d7c9b10.svc.cluster.local"`,
	} {
		if !strings.Contains(value, want) {
			t.Errorf("template %q does not contain %q", value, want)
		}
	}

	data, _, _ := unstructured.NestedMap(dns.Retract.Object, "data")
	if v, ok := data[DNSOverrideKey(starID)]; !ok || v != nil {
		t.Errorf("retract must null the key, got %v", data)
	}
}

func TestPlanetGraph(t *testing.T) {
	b := testBuilder(t)
	planet := &models.Planet{ID: planetID, Name: "disk", Capacity: 1, GalaxyID: galaxyID}

	g, err := b.Planet(planet)
	if err != nil {
		t.Fatalf("Planet() error = %v", err)
	}
	if len(g.Nodes) != 1 {
		t.Fatalf("detached planet must only have a claim, got %d nodes", len(g.Nodes))
	}
	claim := mustNode(t, g, nodeClaim)
	if got := nestedString(t, &claim.Object, "spec", "storageClassName"); got != "local-path" {
		t.Errorf("storage class = %q", got)
	}
	if got := nestedString(t, &claim.Object, "spec", "resources", "requests", "storage"); got != "1G" {
		t.Errorf("storage = %q", got)
	}

	planet.StarID = &starID
	planet.Path = "/var/lib/data"
	g, err = b.Planet(planet)
	if err != nil {
		t.Fatalf("Planet() error = %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("graph is invalid: %v", err)
	}

	mount := mustNode(t, g, "mount-"+StarName(starID))
	if mount.ApplyPolicy.FieldManager != PlanetFieldManager(planetID) {
		t.Errorf("field manager = %q", mount.ApplyPolicy.FieldManager)
	}
	if mount.ApplyPolicy.ConflictPolicy != graph.ConflictPolicyForce {
		t.Errorf("conflict policy = %s, want Force", mount.ApplyPolicy.ConflictPolicy)
	}
	if mount.Object.GetName() != StarName(starID) || mount.Object.GetNamespace() != NamespaceName(galaxyID) {
		t.Errorf("mount target = %s/%s", mount.Object.GetNamespace(), mount.Object.GetName())
	}

	containers, _, _ := unstructured.NestedSlice(mount.Object.Object, "spec", "template", "spec", "containers")
	mounts := containers[0].(map[string]any)["volumeMounts"].([]any)
	if len(mounts) != 1 || mounts[0].(map[string]any)["mountPath"] != "/var/lib/data" {
		t.Errorf("volumeMounts = %v", mounts)
	}
	volumes, _, _ := unstructured.NestedSlice(mount.Object.Object, "spec", "template", "spec", "volumes")
	claimRef := volumes[0].(map[string]any)["persistentVolumeClaim"].(map[string]any)["claimName"]
	if claimRef != ClaimName(planetID) {
		t.Errorf("claimName = %v", claimRef)
	}

	retractVolumes, _, _ := unstructured.NestedSlice(mount.Retract.Object, "spec", "template", "spec", "volumes")
	if len(retractVolumes) != 0 {
		t.Errorf("retract must have no volumes, got %v", retractVolumes)
	}
}

func TestPlanetMoveChangesMountNode(t *testing.T) {
	b := testBuilder(t)
	other := uuid.New()
	before, err := b.Planet(&models.Planet{ID: planetID, StarID: &starID, GalaxyID: galaxyID})
	if err != nil {
		t.Fatal(err)
	}
	after, err := b.Planet(&models.Planet{ID: planetID, StarID: &other, GalaxyID: galaxyID})
	if err != nil {
		t.Fatal(err)
	}

	removed := after.Removed(before)
	if len(removed) != 1 || removed[0].ID != "mount-"+StarName(starID) {
		t.Errorf("Removed() = %v, want the old mount", removed)
	}
}

func TestVariableGraph(t *testing.T) {
	b := testBuilder(t)
	v := &models.Variable{ID: uuid.New(), Name: "TOKEN", Value: "s3cr3t", StarID: starID}

	g, err := b.Variable(v, galaxyID)
	if err != nil {
		t.Fatalf("Variable() error = %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("graph is invalid: %v", err)
	}

	patch := mustNode(t, g, "var-TOKEN")
	if patch.Object.GetName() != VarsSecretName(starID) {
		t.Errorf("patch target = %q", patch.Object.GetName())
	}
	encoded := nestedString(t, &patch.Object, "data", "TOKEN")
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || string(decoded) != "s3cr3t" {
		t.Errorf("data.TOKEN = %q", encoded)
	}

	restart := mustNode(t, g, "restart-"+StarName(starID))
	if restart.EffectiveKind() != graph.NodeKindRestart {
		t.Errorf("restart kind = %s", restart.EffectiveKind())
	}
	if len(restart.DependsOn) != 1 || restart.DependsOn[0] != "var-TOKEN" {
		t.Errorf("restart deps = %v", restart.DependsOn)
	}

	if _, err := b.Variable(&models.Variable{StarID: starID}, galaxyID); err == nil {
		t.Error("expected error for unnamed variable")
	}
}

func TestRenderHashStable(t *testing.T) {
	b := testBuilder(t)
	a, _ := b.Star(testStar("shop", ""))
	c, _ := b.Star(testStar("shop", ""))
	if a.Metadata.RenderHash == "" || a.Metadata.RenderHash != c.Metadata.RenderHash {
		t.Errorf("hashes differ for equal stars: %q vs %q", a.Metadata.RenderHash, c.Metadata.RenderHash)
	}

	d, _ := b.Star(testStar("", ""))
	if d.Metadata.RenderHash == a.Metadata.RenderHash {
		t.Error("exposure change must change the hash")
	}
}

func TestRender(t *testing.T) {
	g, err := testBuilder(t).Star(testStar("", "db"))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Render(g)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	text := string(out)

	if strings.Contains(text, "kind: Ingress") {
		t.Error("disabled ingress must not be rendered")
	}
	for _, want := range []string{"kind: Secret", "kind: Deployment", "kind: Service", "# node: dns-override kind: Patch"} {
		if !strings.Contains(text, want) {
			t.Errorf("render output missing %q", want)
		}
	}
	if strings.Index(text, "kind: Deployment") > strings.Index(text, "kind: Service") {
		t.Error("deployment must be rendered before service")
	}
}
