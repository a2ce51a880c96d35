package controllers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	grpchealth "google.golang.org/grpc/health"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	composerv1alpha1 "github.com/anvil-platform/composer/api/v1alpha1"
	"github.com/anvil-platform/composer/internal/classes"
	"github.com/anvil-platform/composer/internal/commission"
	"github.com/anvil-platform/composer/internal/events"
	"github.com/anvil-platform/composer/internal/health"
	"github.com/anvil-platform/composer/internal/model"
	"github.com/anvil-platform/composer/internal/plan"
)

const controllerName = "Container"

// deployment is a container this process has assembled and possibly
// commissioned. mu serializes commission and decommission of its root.
type deployment struct {
	fingerprint string
	plan        plan.Plan
	reporter    *health.Reporter

	mu   sync.Mutex
	live bool
}

// ContainerReconciler assembles Containers from the ComponentTypes of their
// namespace and commissions them in this process.
//
// RBAC:
// +kubebuilder:rbac:groups=composer.anvil.platform,resources=componenttypes,verbs=get;list;watch
// +kubebuilder:rbac:groups=composer.anvil.platform,resources=containers,verbs=get;list;watch
// +kubebuilder:rbac:groups=composer.anvil.platform,resources=containers/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch;update
type ContainerReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder

	// Loader instantiates components on commission. Without one, models are
	// commissioned without instances.
	Loader classes.Loader
	// Health, when set, reports every commissioned model.
	Health *grpchealth.Server
	// Publisher, when set, receives a lifecycle event per commission request.
	Publisher events.Publisher
	// Source identifies this process in lifecycle events.
	Source string

	mu          sync.Mutex
	deployments map[types.NamespacedName]*deployment
}

func (r *ContainerReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	composerControllerReconcileTotal.WithLabelValues(controllerName).Inc()

	logger := log.FromContext(ctx).WithValues(
		"controller", controllerName,
		"namespace", req.Namespace,
		"container", req.Name,
	)

	var container composerv1alpha1.Container
	if err := r.Get(ctx, req.NamespacedName, &container); err != nil {
		if client.IgnoreNotFound(err) == nil {
			if terr := r.teardown(ctx, req.NamespacedName, true); terr != nil {
				logger.Error(terr, "decommission of deleted container failed")
			}
			return ctrl.Result{}, nil
		}
		composerControllerReconcileErrorTotal.WithLabelValues(controllerName).Inc()
		return ctrl.Result{}, err
	}
	if !container.DeletionTimestamp.IsZero() {
		if err := r.teardown(ctx, req.NamespacedName, true); err != nil {
			logger.Error(err, "decommission of deleting container failed")
		}
		return ctrl.Result{}, nil
	}

	var typeList composerv1alpha1.ComponentTypeList
	if err := r.List(ctx, &typeList, client.InNamespace(req.Namespace)); err != nil {
		logger.Error(err, "failed to list component types")
		composerControllerReconcileErrorTotal.WithLabelValues(controllerName).Inc()
		return ctrl.Result{}, err
	}

	fp := fingerprint(&container, typeList.Items)
	current := r.deployment(req.NamespacedName)
	if current == nil || current.fingerprint != fp {
		if current != nil {
			logger.Info("descriptors changed; rebuilding container")
			if err := r.teardown(ctx, req.NamespacedName, false); err != nil {
				logger.Error(err, "decommission before rebuild failed")
				r.recordEventf(&container, "Warning", "DecommissionFailed", "%v", err)
			}
		}
		d, ok, err := r.assemble(ctx, logger, &container, typeList.Items, fp)
		if err != nil {
			composerControllerReconcileErrorTotal.WithLabelValues(controllerName).Inc()
			return ctrl.Result{}, err
		}
		if !ok {
			return ctrl.Result{}, nil
		}
		current = d
	}

	if container.Spec.Suspend {
		return ctrl.Result{}, r.suspend(ctx, logger, &container, current)
	}
	return r.commission(ctx, logger, &container, current)
}

// assemble builds and assembles the container. ok is false when the
// descriptors are invalid or do not assemble; the status says why.
func (r *ContainerReconciler) assemble(ctx context.Context, logger logr.Logger, c *composerv1alpha1.Container, componentTypes []composerv1alpha1.ComponentType, fp string) (*deployment, bool, error) {
	key := client.ObjectKeyFromObject(c)
	reporter := r.reporter(key)

	listeners := []commission.Listener{}
	if reporter != nil {
		listeners = append(listeners, reporter)
	}
	if r.Publisher != nil {
		listeners = append(listeners, events.NewListener(logger, r.Publisher, "", r.Source))
	}
	opts := []model.Option{model.WithCommissioners(commission.NewFactory(logger, listeners...))}
	if r.Loader != nil {
		opts = append(opts, model.WithLoader(r.Loader))
	}

	start := time.Now()
	p, err := plan.NewDefault(logger, opts...).Resolve(ctx, plan.Input{Container: *c, Types: componentTypes})
	assemblyDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		assemblyTotal.WithLabelValues("failed").Inc()
		if p.Root != nil {
			p.Root.Dispose()
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, false, err
		}
		msg := fmt.Sprintf("AssemblyFailed: %v", err)
		logger.Info("container did not assemble", "error", err.Error(),
			"unresolvedRequired", len(p.Diagnostics.UnresolvedRequired))
		r.applyPlan(c, p)
		if perr := r.patchStatus(ctx, c, composerv1alpha1.ContainerPhaseFailed, msg,
			metav1.Condition{
				Type:    ContainerConditionAssembled,
				Status:  metav1.ConditionFalse,
				Reason:  "AssemblyFailed",
				Message: err.Error(),
			},
			metav1.Condition{
				Type:    ContainerConditionCommissioned,
				Status:  metav1.ConditionFalse,
				Reason:  "NotAssembled",
				Message: "Cannot commission until the container assembles",
			},
		); perr != nil {
			logger.Error(perr, "failed to patch container status")
		}
		r.recordEventf(c, "Warning", "AssemblyFailed", "%v", err)
		return nil, false, nil
	}

	assemblyTotal.WithLabelValues("assembled").Inc()
	containerUnresolvedOptional.WithLabelValues(c.Namespace, c.Name).Set(float64(len(p.Diagnostics.UnresolvedOptional)))
	logger.Info("container assembled",
		"models", len(p.Models),
		"bindings", len(p.Bindings),
		"unresolvedOptional", len(p.Diagnostics.UnresolvedOptional),
	)
	r.recordEventf(c, "Normal", "Assembled", "%s", assembledMessage(p))

	d := &deployment{fingerprint: fp, plan: p, reporter: reporter}
	r.mu.Lock()
	if r.deployments == nil {
		r.deployments = map[types.NamespacedName]*deployment{}
	}
	r.deployments[key] = d
	r.mu.Unlock()
	return d, true, nil
}

func (r *ContainerReconciler) commission(ctx context.Context, logger logr.Logger, c *composerv1alpha1.Container, d *deployment) (ctrl.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.live {
		if err := d.plan.Root.Commission(ctx); err != nil {
			logger.Error(err, "commission failed")
			r.applyPlan(c, d.plan)
			if perr := r.patchStatus(ctx, c, composerv1alpha1.ContainerPhaseFailed, fmt.Sprintf("CommissionFailed: %v", err),
				assembledCondition(d.plan),
				metav1.Condition{
					Type:    ContainerConditionCommissioned,
					Status:  metav1.ConditionFalse,
					Reason:  "CommissionFailed",
					Message: err.Error(),
				},
			); perr != nil {
				logger.Error(perr, "failed to patch container status")
			}
			r.recordEventf(c, "Warning", "CommissionFailed", "%v", err)
			composerControllerReconcileErrorTotal.WithLabelValues(controllerName).Inc()
			return ctrl.Result{RequeueAfter: 30 * time.Second}, nil
		}
		d.live = true
		containersCommissioned.Inc()
		if d.reporter != nil {
			d.reporter.SetContainer(true)
		}
		now := metav1.Now()
		c.Status.CommissionedAt = &now
		logger.Info("container commissioned", "order", d.plan.Order)
		r.recordEventf(c, "Normal", "Commissioned", "Commissioned %d models", len(d.plan.Order))
	}

	r.applyPlan(c, d.plan)
	if err := r.patchStatus(ctx, c, composerv1alpha1.ContainerPhaseCommissioned, "",
		assembledCondition(d.plan),
		metav1.Condition{
			Type:    ContainerConditionCommissioned,
			Status:  metav1.ConditionTrue,
			Reason:  "Commissioned",
			Message: fmt.Sprintf("%d models commissioned", len(d.plan.Order)),
		},
	); err != nil {
		composerControllerReconcileErrorTotal.WithLabelValues(controllerName).Inc()
		return ctrl.Result{}, err
	}
	return ctrl.Result{}, nil
}

func (r *ContainerReconciler) suspend(ctx context.Context, logger logr.Logger, c *composerv1alpha1.Container, d *deployment) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.live {
		if err := d.plan.Root.Decommission(ctx); err != nil {
			logger.Error(err, "decommission on suspend failed")
			r.recordEventf(c, "Warning", "DecommissionFailed", "%v", err)
		}
		d.live = false
		containersCommissioned.Dec()
		if d.reporter != nil {
			d.reporter.SetContainer(false)
		}
		r.recordEventf(c, "Normal", "Suspended", "Container decommissioned")
	}
	r.applyPlan(c, d.plan)
	c.Status.CommissionedAt = nil
	return r.patchStatus(ctx, c, composerv1alpha1.ContainerPhaseSuspended, "",
		assembledCondition(d.plan),
		metav1.Condition{
			Type:    ContainerConditionCommissioned,
			Status:  metav1.ConditionFalse,
			Reason:  "Suspended",
			Message: "spec.suspend is set",
		},
	)
}

// teardown decommissions and forgets the deployment of key, if any. forget
// also withdraws its health services.
func (r *ContainerReconciler) teardown(ctx context.Context, key types.NamespacedName, forget bool) error {
	r.mu.Lock()
	d := r.deployments[key]
	delete(r.deployments, key)
	r.mu.Unlock()
	if d == nil {
		return nil
	}
	return r.stop(ctx, key, d, forget)
}

func (r *ContainerReconciler) stop(ctx context.Context, key types.NamespacedName, d *deployment, forget bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	if d.live {
		err = d.plan.Root.Decommission(ctx)
		d.live = false
		containersCommissioned.Dec()
	}
	d.plan.Root.Dispose()
	containerUnresolvedOptional.DeleteLabelValues(key.Namespace, key.Name)
	if d.reporter != nil {
		if forget {
			paths := make([]string, 0, len(d.plan.Models))
			for _, m := range d.plan.Models {
				paths = append(paths, m.Path)
			}
			d.reporter.Forget(paths...)
		} else {
			d.reporter.SetContainer(false)
		}
	}
	return err
}

// Shutdown decommissions every container this process commissioned.
func (r *ContainerReconciler) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	all := r.deployments
	r.deployments = nil
	r.mu.Unlock()

	var errs []error
	for key, d := range all {
		if err := r.stop(ctx, key, d, true); err != nil {
			errs = append(errs, fmt.Errorf("container %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (r *ContainerReconciler) deployment(key types.NamespacedName) *deployment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deployments[key]
}

func (r *ContainerReconciler) reporter(key types.NamespacedName) *health.Reporter {
	if r.Health == nil {
		return nil
	}
	return health.NewReporter(r.Health, key.String())
}

func assembledCondition(p plan.Plan) metav1.Condition {
	return metav1.Condition{
		Type:    ContainerConditionAssembled,
		Status:  metav1.ConditionTrue,
		Reason:  "Assembled",
		Message: assembledMessage(p),
	}
}

// applyPlan copies the current model states and bindings into the status.
func (r *ContainerReconciler) applyPlan(c *composerv1alpha1.Container, p plan.Plan) {
	var models []plan.Model
	if p.Root != nil {
		models = plan.Snapshot(p.Root)
	}
	c.Status.Models = make([]composerv1alpha1.ModelStatus, 0, len(models))
	for _, m := range models {
		c.Status.Models = append(c.Status.Models, composerv1alpha1.ModelStatus{
			Path:  m.Path,
			Kind:  m.Kind,
			Mode:  composerv1alpha1.Mode(m.Mode),
			Type:  m.Type,
			State: m.State,
		})
	}
	c.Status.ModelCount = int32(len(models))
	c.Status.Bindings = make([]composerv1alpha1.BindingStatus, 0, len(p.Bindings))
	for _, b := range p.Bindings {
		c.Status.Bindings = append(c.Status.Bindings, composerv1alpha1.BindingStatus{
			Consumer: b.Consumer,
			Slot:     b.Slot,
			Provider: b.Provider,
		})
	}
}

func (r *ContainerReconciler) patchStatus(ctx context.Context, c *composerv1alpha1.Container, phase, message string, conds ...metav1.Condition) error {
	status := c.Status.DeepCopy()
	var latest composerv1alpha1.Container
	if err := r.Get(ctx, client.ObjectKeyFromObject(c), &latest); err != nil {
		return client.IgnoreNotFound(err)
	}
	before := latest.DeepCopy()
	latest.Status.Models = status.Models
	latest.Status.ModelCount = status.ModelCount
	latest.Status.Bindings = status.Bindings
	latest.Status.CommissionedAt = status.CommissionedAt
	latest.Status.ObservedGeneration = c.Generation
	latest.Status.Phase = phase
	latest.Status.Message = message
	for _, cond := range conds {
		setContainerCondition(&latest, cond)
	}
	if err := r.Status().Patch(ctx, &latest, client.MergeFrom(before)); err != nil {
		return err
	}
	latest.DeepCopyInto(c)
	return nil
}

func (r *ContainerReconciler) recordEventf(obj client.Object, eventType, reason, messageFmt string, args ...any) {
	if r.Recorder == nil || obj == nil {
		return
	}
	r.Recorder.Eventf(obj, eventType, reason, messageFmt, args...)
}

// fingerprint changes whenever the container spec or any component type of
// its namespace changes.
func fingerprint(c *composerv1alpha1.Container, componentTypes []composerv1alpha1.ComponentType) string {
	parts := make([]string, 0, len(componentTypes))
	for _, t := range componentTypes {
		parts = append(parts, t.Name+"@"+t.ResourceVersion)
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s@%d|%s", c.UID, c.Generation, strings.Join(parts, ","))
}

func (r *ContainerReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&composerv1alpha1.Container{}, builder.WithPredicates(predicate.GenerationChangedPredicate{})).
		Watches(
			&composerv1alpha1.ComponentType{},
			enqueueContainersForType(mgr.GetClient()),
		).
		Complete(r)
}

// enqueueContainersForType enqueues every Container in the namespace of a
// changed ComponentType.
func enqueueContainersForType(c client.Client) handler.EventHandler {
	return handler.EnqueueRequestsFromMapFunc(func(ctx context.Context, obj client.Object) []reconcile.Request {
		var containers composerv1alpha1.ContainerList
		if err := c.List(ctx, &containers, client.InNamespace(obj.GetNamespace())); err != nil {
			return nil
		}
		out := make([]reconcile.Request, 0, len(containers.Items))
		for _, item := range containers.Items {
			out = append(out, reconcile.Request{NamespacedName: types.NamespacedName{Namespace: item.Namespace, Name: item.Name}})
		}
		return out
	})
}
