package resources_test

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"github.com/chazu/gws/internal/models"
	"github.com/chazu/gws/internal/resources"
	"github.com/chazu/gws/pkg/apply"
	"github.com/chazu/gws/pkg/reconcile"
)

// cluster is a fake cluster recording the writes it receives. Server-side
// apply is recorded with its field manager but not executed.
type cluster struct {
	client.Client

	mu    sync.Mutex
	calls []string
}

func newCluster(objs ...client.Object) *cluster {
	cl := &cluster{}
	cl.Client = fake.NewClientBuilder().
		WithObjects(objs...).
		WithInterceptorFuncs(interceptor.Funcs{
			Create: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.CreateOption) error {
				cl.record("create %s", obj.GetName())
				return c.Create(ctx, obj, opts...)
			},
			Delete: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.DeleteOption) error {
				cl.record("delete %s", obj.GetName())
				return c.Delete(ctx, obj, opts...)
			},
			Patch: func(ctx context.Context, c client.WithWatch, obj client.Object, patch client.Patch, opts ...client.PatchOption) error {
				if patch.Type() == types.ApplyPatchType {
					po := &client.PatchOptions{}
					po.ApplyOptions(opts)
					cl.record("apply %s by %s", obj.GetName(), po.FieldManager)
					return nil
				}
				cl.record("patch %s", obj.GetName())
				return c.Patch(ctx, obj, patch, opts...)
			},
		}).
		Build()
	return cl
}

func (cl *cluster) record(format string, args ...any) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.calls = append(cl.calls, fmt.Sprintf(format, args...))
}

func (cl *cluster) Calls() []string {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return slices.Clone(cl.calls)
}

func (cl *cluster) Reset() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.calls = nil
}

func (cl *cluster) exists(ctx context.Context, obj client.Object, namespace, name string) bool {
	err := cl.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, obj)
	if apierrors.IsNotFound(err) {
		return false
	}
	Expect(err).NotTo(HaveOccurred())
	return true
}

func domain(s string) *string {
	return &s
}

var _ = Describe("Entity reconciliation", func() {
	var (
		ctx     context.Context
		builder *resources.Builder
		galaxy  *models.Galaxy
		ns      string
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		builder, err = resources.NewBuilder(resources.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		galaxy = &models.Galaxy{ID: uuid.New(), Name: "andromeda", UserID: uuid.New()}
		ns = resources.NamespaceName(galaxy.ID)
	})

	Context("galaxy lifecycle", func() {
		It("creates the namespace first and tolerates a repeated delete", func() {
			cl := newCluster()
			engine := reconcile.NewEngine(cl)

			g, err := builder.Galaxy(galaxy)
			Expect(err).NotTo(HaveOccurred())

			By("creating the galaxy")
			result, err := engine.Create(ctx, g)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Applied).To(ConsistOf("namespace", "tls-secret", "network-policy"))
			Expect(cl.Calls()[0]).To(Equal("create " + ns))
			Expect(cl.exists(ctx, &corev1.Namespace{}, "", ns)).To(BeTrue())
			Expect(cl.exists(ctx, &corev1.Secret{}, ns, resources.TLSSecretName)).To(BeTrue())
			Expect(cl.exists(ctx, &networkingv1.NetworkPolicy{}, ns, resources.NetworkPolicyName)).To(BeTrue())

			By("creating it again")
			_, err = engine.Create(ctx, g)
			Expect(err).To(HaveOccurred())
			Expect(apierrors.IsAlreadyExists(err)).To(BeTrue())

			By("deleting it")
			cl.Reset()
			_, err = engine.Delete(ctx, g)
			Expect(err).NotTo(HaveOccurred())
			calls := cl.Calls()
			Expect(calls[len(calls)-1]).To(Equal("delete " + ns))
			Expect(cl.exists(ctx, &corev1.Namespace{}, "", ns)).To(BeFalse())

			By("deleting it a second time")
			result, err = engine.Delete(ctx, g)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Applied).To(BeEmpty())
		})
	})

	Context("star exposure", func() {
		var (
			cl     *cluster
			engine *reconcile.Engine
			star   *models.Star
		)

		BeforeEach(func() {
			cl = newCluster()
			engine = reconcile.NewEngine(cl)
			star = &models.Star{
				ID:       uuid.New(),
				Name:     "web",
				Nebula:   "nginx:1.27",
				Port:     80,
				GalaxyID: galaxy.ID,
			}
		})

		update := func(next *models.Star, previous *models.Star) {
			current, err := builder.Star(next)
			Expect(err).NotTo(HaveOccurred())
			before, err := builder.Star(previous)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.Update(ctx, current, before)
			Expect(err).NotTo(HaveOccurred())
		}

		It("creates no ingress and no DNS entry for an unexposed star", func() {
			g, err := builder.Star(star)
			Expect(err).NotTo(HaveOccurred())
			result, err := engine.Create(ctx, g)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Applied).To(ConsistOf("vars-secret", "deployment", "service"))
			Expect(cl.exists(ctx, &appsv1.Deployment{}, ns, resources.StarName(star.ID))).To(BeTrue())
			Expect(cl.exists(ctx, &corev1.Service{}, ns, resources.StarName(star.ID))).To(BeTrue())
			Expect(cl.exists(ctx, &networkingv1.Ingress{}, ns, resources.StarName(star.ID))).To(BeFalse())
			Expect(cl.exists(ctx, &corev1.ConfigMap{}, "kube-system", "coredns-custom")).To(BeFalse())
		})

		It("toggles the ingress with the public domain", func() {
			g, err := builder.Star(star)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.Create(ctx, g)
			Expect(err).NotTo(HaveOccurred())

			By("making the star public")
			public := *star
			public.PublicDomain = domain("shop")
			update(&public, star)

			ingress := &networkingv1.Ingress{}
			Expect(cl.exists(ctx, ingress, ns, resources.StarName(star.ID))).To(BeTrue())
			Expect(ingress.Spec.Rules[0].Host).To(Equal("shop.localhost"))

			By("changing the subdomain")
			renamed := public
			renamed.PublicDomain = domain("store")
			update(&renamed, &public)

			ingress = &networkingv1.Ingress{}
			Expect(cl.exists(ctx, ingress, ns, resources.StarName(star.ID))).To(BeTrue())
			Expect(ingress.Spec.Rules[0].Host).To(Equal("store.localhost"))

			By("making the star unexposed again")
			update(star, &renamed)
			Expect(cl.exists(ctx, &networkingv1.Ingress{}, ns, resources.StarName(star.ID))).To(BeFalse())
		})

		It("never overwrites the vars secret on update", func() {
			g, err := builder.Star(star)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.Create(ctx, g)
			Expect(err).NotTo(HaveOccurred())

			secret := &corev1.Secret{}
			Expect(cl.exists(ctx, secret, ns, resources.VarsSecretName(star.ID))).To(BeTrue())
			secret.Data = map[string][]byte{"TOKEN": []byte("kept")}
			Expect(cl.Update(ctx, secret)).To(Succeed())

			update(star, star)

			secret = &corev1.Secret{}
			Expect(cl.exists(ctx, secret, ns, resources.VarsSecretName(star.ID))).To(BeTrue())
			Expect(secret.Data).To(HaveKeyWithValue("TOKEN", []byte("kept")))
		})

		It("removes only its own DNS entry", func() {
			cl = newCluster(&corev1.ConfigMap{
				ObjectMeta: metav1.ObjectMeta{Name: "coredns-custom", Namespace: "kube-system"},
				Data:       map[string]string{"other.override": "keep me"},
			})
			engine = reconcile.NewEngine(cl)

			private := *star
			private.PrivateDomain = domain("db")
			g, err := builder.Star(&private)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.Create(ctx, g)
			Expect(err).NotTo(HaveOccurred())

			cm := &corev1.ConfigMap{}
			Expect(cl.exists(ctx, cm, "kube-system", "coredns-custom")).To(BeTrue())
			Expect(cm.Data).To(HaveKey(resources.DNSOverrideKey(star.ID)))
			entry := cm.Data[resources.DNSOverrideKey(star.ID)]
			Expect(entry).To(ContainSubstring("template IN ANY db.gws.internal {"))
			Expect(entry).To(ContainSubstring(fmt.Sprintf("IN CNAME star-%s.galaxy-%s.svc.cluster.local", star.ID, galaxy.ID)))

			By("making the star unexposed")
			update(star, &private)

			cm = &corev1.ConfigMap{}
			Expect(cl.exists(ctx, cm, "kube-system", "coredns-custom")).To(BeTrue())
			Expect(cm.Data).NotTo(HaveKey(resources.DNSOverrideKey(star.ID)))
			Expect(cm.Data).To(HaveKeyWithValue("other.override", "keep me"))
		})

		It("creates the DNS ConfigMap when it does not exist", func() {
			private := *star
			private.PrivateDomain = domain("db")
			g, err := builder.Star(&private)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.Create(ctx, g)
			Expect(err).NotTo(HaveOccurred())

			cm := &corev1.ConfigMap{}
			Expect(cl.exists(ctx, cm, "kube-system", "coredns-custom")).To(BeTrue())
			Expect(cm.Data).To(HaveKey(resources.DNSOverrideKey(star.ID)))
		})
	})

	Context("planet attachment", func() {
		It("mounts under the planet's field manager and unmounts on detach", func() {
			cl := newCluster()
			engine := reconcile.NewEngine(cl)

			star := &models.Star{ID: uuid.New(), Name: "db", Nebula: "postgres:17", Port: 5432, GalaxyID: galaxy.ID}
			sg, err := builder.Star(star)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.Create(ctx, sg)
			Expect(err).NotTo(HaveOccurred())

			planet := &models.Planet{ID: uuid.New(), Name: "pgdata", Capacity: 1, GalaxyID: galaxy.ID}
			attached := *planet
			attached.StarID = &star.ID

			mount := fmt.Sprintf("apply %s by %s", resources.StarName(star.ID), resources.PlanetFieldManager(planet.ID))

			By("creating an attached planet")
			cl.Reset()
			pg, err := builder.Planet(&attached)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.Create(ctx, pg)
			Expect(err).NotTo(HaveOccurred())
			Expect(cl.Calls()).To(Equal([]string{
				"create " + resources.ClaimName(planet.ID),
				mount,
			}))

			By("detaching it")
			cl.Reset()
			detached, err := builder.Planet(planet)
			Expect(err).NotTo(HaveOccurred())
			result, err := engine.Update(ctx, detached, pg)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Pruned).To(ConsistOf("mount-" + resources.StarName(star.ID)))
			Expect(cl.Calls()).To(ContainElement(mount))
			Expect(cl.exists(ctx, &corev1.PersistentVolumeClaim{}, ns, resources.ClaimName(planet.ID))).To(BeTrue())
		})
	})

	Context("variables", func() {
		var (
			cl     *cluster
			engine *reconcile.Engine
			star   *models.Star
		)

		BeforeEach(func() {
			cl = newCluster()
			engine = reconcile.NewEngine(cl)
			star = &models.Star{ID: uuid.New(), Name: "api", Nebula: "api:1", Port: 8080, GalaxyID: galaxy.ID}
			sg, err := builder.Star(star)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.Create(ctx, sg)
			Expect(err).NotTo(HaveOccurred())
		})

		restartedAt := func() string {
			d := &appsv1.Deployment{}
			Expect(cl.exists(ctx, d, ns, resources.StarName(star.ID))).To(BeTrue())
			return d.Spec.Template.Annotations[apply.RestartAnnotation]
		}

		It("sets the key, restarts the star and removes the key on delete", func() {
			v := &models.Variable{ID: uuid.New(), Name: "TOKEN", Value: "s3cr3t", StarID: star.ID}
			g, err := builder.Variable(v, galaxy.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Create(ctx, g)
			Expect(err).NotTo(HaveOccurred())

			secret := &corev1.Secret{}
			Expect(cl.exists(ctx, secret, ns, resources.VarsSecretName(star.ID))).To(BeTrue())
			Expect(secret.Data).To(HaveKeyWithValue("TOKEN", []byte("s3cr3t")))
			Expect(restartedAt()).NotTo(BeEmpty())

			_, err = engine.Delete(ctx, g)
			Expect(err).NotTo(HaveOccurred())
			secret = &corev1.Secret{}
			Expect(cl.exists(ctx, secret, ns, resources.VarsSecretName(star.ID))).To(BeTrue())
			Expect(secret.Data).NotTo(HaveKey("TOKEN"))
		})

		It("moves the value to the new key on rename", func() {
			v := &models.Variable{ID: uuid.New(), Name: "OLD", Value: "1", StarID: star.ID}
			before, err := builder.Variable(v, galaxy.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.Create(ctx, before)
			Expect(err).NotTo(HaveOccurred())

			renamed := *v
			renamed.Name = "NEW"
			after, err := builder.Variable(&renamed, galaxy.ID)
			Expect(err).NotTo(HaveOccurred())
			result, err := engine.Update(ctx, after, before)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Pruned).To(ConsistOf("var-OLD"))

			secret := &corev1.Secret{}
			Expect(cl.exists(ctx, secret, ns, resources.VarsSecretName(star.ID))).To(BeTrue())
			Expect(secret.Data).NotTo(HaveKey("OLD"))
			Expect(secret.Data).To(HaveKeyWithValue("NEW", []byte("1")))
		})

		It("does not restart when deleting a key that is already gone", func() {
			v := &models.Variable{ID: uuid.New(), Name: "GHOST", Value: "x", StarID: star.ID}
			g, err := builder.Variable(v, galaxy.ID)
			Expect(err).NotTo(HaveOccurred())

			cl.Reset()
			result, err := engine.Delete(ctx, g)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Applied).To(BeEmpty())
			Expect(cl.Calls()).To(BeEmpty())
		})
	})
})
