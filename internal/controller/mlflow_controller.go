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

package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/canonical/pebble/internals/plan"
	consolev1 "github.com/openshift/api/console/v1"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/retry"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	mlflowv1 "github.com/canonical/mlflow-operator/api/v1"
	"github.com/canonical/mlflow-operator/internal/database"
	"github.com/canonical/mlflow-operator/internal/manifests"
	"github.com/canonical/mlflow-operator/internal/objectstore"
	"github.com/canonical/mlflow-operator/internal/relation"
	"github.com/canonical/mlflow-operator/internal/status"
	"github.com/canonical/mlflow-operator/internal/workload"
)

const (
	defaultChartPath = "charts/mlflow-server"
	defaultUnitName  = "mlflow-operator"
)

// MLflowServerReconciler reconciles a MLflowServer object
type MLflowServerReconciler struct {
	client.Client
	Scheme    *runtime.Scheme
	ChartPath string
	// Leader gates workload changes. A nil Leader always leads.
	Leader Leadership
	// UnitName identifies this replica in status.units
	UnitName string
	// DefaultImage is used when spec.image is unset
	DefaultImage string
	// BucketClientFactory builds object storage clients, the S3 SDK when nil
	BucketClientFactory objectstore.ClientFactory
	// DatabaseProber checks the database before rollout. A nil prober skips the check.
	DatabaseProber       database.Prober
	ConsoleLinkAvailable bool
	HTTPRouteAvailable   bool
}

// +kubebuilder:rbac:groups=mlflow.charmed.io,resources=mlflowservers,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=mlflow.charmed.io,resources=mlflowservers/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=mlflow.charmed.io,resources=mlflowservers/finalizers,verbs=update
// +kubebuilder:rbac:groups="",resources=secrets;services;serviceaccounts,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=apps,resources=deployments,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=console.openshift.io,resources=consolelinks,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=gateway.networking.k8s.io,resources=httproutes,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=coordination.k8s.io,resources=leases,verbs=get;list;watch;create;update;patch;delete

// Reconcile runs one pass over an MLflowServer. The first step that cannot
// proceed records its status on the server and ends the pass. Work already
// applied by earlier steps is kept.
func (r *MLflowServerReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	server := &mlflowv1.MLflowServer{}
	err := r.Get(ctx, req.NamespacedName, server)
	if err != nil {
		if apierrors.IsNotFound(err) {
			log.Info("MLflowServer resource not found. Ignoring since object must be deleted")
			return ctrl.Result{}, nil
		}
		log.Error(err, "Failed to get MLflowServer")
		return ctrl.Result{}, err
	}

	// Namespaced resources are cleaned up via owner references
	if server.GetDeletionTimestamp() != nil {
		return ctrl.Result{}, r.finalize(ctx, server)
	}

	leader := r.isLeader()
	result, err := r.reconcileServer(ctx, server, leader)

	if statusErr, ok := status.FromError(err); ok {
		log.Info("Reconciliation stopped early", "phase", statusErr.Phase, "message", statusErr.Message)
		if statusErr.Err != nil {
			log.V(1).Info("Stopped on error", "error", statusErr.Err.Error())
		}
		if updateErr := r.updateStatus(ctx, server, leader, statusErr.Phase, statusErr.Message); updateErr != nil {
			log.Error(updateErr, "Failed to update MLflowServer status after retries")
			return ctrl.Result{}, updateErr
		}
		if statusErr.Phase == mlflowv1.PhaseWaiting {
			return ctrl.Result{RequeueAfter: waitingRequeue}, nil
		}
		return ctrl.Result{}, nil
	}

	if err != nil {
		log.Error(err, "Failed to reconcile MLflowServer")
		meta.SetStatusCondition(&server.Status.Conditions, metav1.Condition{
			Type:    ConditionAvailable,
			Status:  metav1.ConditionFalse,
			Reason:  "ReconcileFailed",
			Message: err.Error(),
		})
		if statusErr := r.updateStatus(ctx, server, leader, "", ""); statusErr != nil {
			log.Error(statusErr, "Failed to update MLflowServer status after retries")
		}
		return ctrl.Result{}, err
	}

	if err := r.updateStatus(ctx, server, leader, mlflowv1.PhaseActive, ""); err != nil {
		log.Error(err, "Failed to update MLflowServer status after retries")
		return ctrl.Result{}, err
	}

	log.Info("Successfully reconciled MLflowServer")
	return result, nil
}

func (r *MLflowServerReconciler) reconcileServer(ctx context.Context, server *mlflowv1.MLflowServer, leader bool) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	if !leader {
		log.Info("Not a leader, skipping setup")
		return ctrl.Result{}, status.Waiting("Waiting for leadership")
	}

	if r.ConsoleLinkAvailable && !controllerutil.ContainsFinalizer(server, ConsoleLinkFinalizer) {
		controllerutil.AddFinalizer(server, ConsoleLinkFinalizer)
		if err := r.Update(ctx, server); err != nil {
			return ctrl.Result{}, fmt.Errorf("failed to add finalizer: %w", err)
		}
	}

	image := r.image(server)
	if image == "" {
		return ctrl.Result{}, status.Blocked("Missing workload image (spec.image or MLFLOW_IMAGE)")
	}

	broker := relation.NewBroker(r.Client, r.Scheme, server)
	interfaces, err := getInterfaces(ctx, broker)
	if err != nil {
		return ctrl.Result{}, err
	}

	db, err := relationalDBData(ctx, broker)
	if err != nil {
		return ctrl.Result{}, err
	}

	store, err := objectStorageData(interfaces)
	if err != nil {
		return ctrl.Result{}, err
	}

	if r.DatabaseProber != nil {
		if err := r.DatabaseProber.Probe(ctx, db); err != nil {
			return ctrl.Result{}, status.Waiting("Waiting for database to accept connections").Wrap(err)
		}
	}

	factory := r.BucketClientFactory
	if factory == nil {
		factory = objectstore.NewBucketWrapper
	}
	created, err := objectstore.EnsureDefaultBucket(ctx, factory(store.Credentials()),
		server.Spec.GetDefaultArtifactRoot(), server.Spec.GetCreateDefaultArtifactRootIfMissing())
	if err != nil {
		return ctrl.Result{}, err
	}
	if created {
		bucketCreatedTotal.Inc()
	}

	if err := r.updateLayer(ctx, server, leader, image, db, store); err != nil {
		return ctrl.Result{}, err
	}

	if err := publishRelationData(ctx, broker, interfaces, server, store); err != nil {
		return ctrl.Result{}, err
	}

	if err := r.reconcileHTTPRoute(ctx, server); err != nil {
		return ctrl.Result{}, fmt.Errorf("failed to reconcile HTTPRoute: %w", err)
	}

	if err := r.reconcileConsoleLink(ctx, server); err != nil {
		return ctrl.Result{}, fmt.Errorf("failed to reconcile ConsoleLink: %w", err)
	}

	return r.checkDeployment(ctx, server)
}

func getInterfaces(ctx context.Context, broker *relation.Broker) (map[string]*relation.Interface, error) {
	interfaces, err := relation.GetInterfaces(ctx, broker, relation.Interfaces)
	if err == nil {
		return interfaces, nil
	}

	var noVersions *relation.NoVersionsListedError
	var incompatible *relation.NoCompatibleVersionsError
	switch {
	case errors.As(err, &noVersions):
		return nil, status.Waiting("%s", err.Error()).Wrap(err)
	case errors.As(err, &incompatible):
		return nil, status.Blocked("%s", err.Error()).Wrap(err)
	default:
		return nil, err
	}
}

func relationalDBData(ctx context.Context, broker *relation.Broker) (database.ConnectionInfo, error) {
	log := logf.FromContext(ctx)

	data, err := relation.NewDatabaseRequires(broker, relation.DatabaseEndpoint, database.DefaultName).FetchRelationData(ctx)
	if err != nil {
		return database.ConnectionInfo{}, err
	}
	if data == nil {
		return database.ConnectionInfo{}, status.Waiting("Waiting for mysql relation data")
	}

	ids := make([]string, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		info, ok, err := database.FromRelationData(data[id])
		if err != nil {
			log.Info("Ignoring malformed database relation data", "relation", id, "error", err.Error())
			continue
		}
		if !ok {
			continue
		}
		log.V(1).Info("Using mysql database endpoint", "relation", id, "endpoint", info.Address())
		return info, nil
	}
	return database.ConnectionInfo{}, status.Waiting("Waiting for relational-db relation data")
}

func objectStorageData(interfaces map[string]*relation.Interface) (objectstore.Data, error) {
	iface := interfaces[relation.ObjectStorageEndpoint]
	if iface == nil {
		return objectstore.Data{}, status.Waiting("Waiting for object-storage relation data")
	}

	byApp, err := iface.Data()
	if err != nil {
		return objectstore.Data{}, unpackError(err)
	}
	store, ok, err := objectstore.FirstFromRelation(byApp)
	if err != nil {
		return objectstore.Data{}, unpackError(err)
	}
	if !ok {
		return objectstore.Data{}, status.Waiting("Waiting for object-storage relation data")
	}
	return store, nil
}

func unpackError(err error) *status.Error {
	return status.Blocked("Unexpected error unpacking object storage data - data format not "+
		"as expected. Caught exception: '%v'", err).Wrap(err)
}

// updateLayer applies the chart. The Deployment and the stored layer are only
// applied when the layer's services or the image differ from what is running.
func (r *MLflowServerReconciler) updateLayer(ctx context.Context, server *mlflowv1.MLflowServer, leader bool,
	image string, db database.ConnectionInfo, store objectstore.Data) error {
	log := logf.FromContext(ctx)
	app := server.Name

	layer := workload.BuildLayer(server.Spec.GetPort(), server.Spec.GetDefaultArtifactRoot(), workload.Environment(db, store))

	current, currentImage, err := r.appliedLayer(ctx, server)
	if err != nil {
		return err
	}
	changed := !workload.ServicesEqual(current, layer) || currentImage != image
	if changed {
		if err := r.updateStatus(ctx, server, leader, mlflowv1.PhaseMaintenance, "Applying new pebble layer"); err != nil {
			return err
		}
	}

	layerData, err := workload.MarshalLayer(layer)
	if err != nil {
		return err
	}
	hash, err := workload.Hash(layer)
	if err != nil {
		return err
	}
	container, err := workload.NewContainerSpec(layer, secretRefs(app))
	if err != nil {
		return err
	}

	renderer := NewHelmRenderer(r.chartPath())
	objects, err := renderer.RenderChart(server, RenderOptions{
		Image:     image,
		Container: container,
		Layer:     layerData,
		LayerHash: hash,
		Database:  db,
		Store:     store,
	})
	if err != nil {
		log.Error(err, "Failed to render Helm chart")
		meta.SetStatusCondition(&server.Status.Conditions, metav1.Condition{
			Type:    ConditionProgressing,
			Status:  metav1.ConditionFalse,
			Reason:  "RenderFailed",
			Message: fmt.Sprintf("Failed to render Helm chart: %v", err),
		})
		return err
	}
	sortForApply(objects)

	for _, obj := range objects {
		if !changed && isWorkloadObject(obj, app) {
			log.V(1).Info("Layer unchanged, skipping", "kind", obj.GetKind(), "name", obj.GetName())
			continue
		}
		if err := controllerutil.SetControllerReference(server, obj, r.Scheme); err != nil {
			return fmt.Errorf("failed to set controller reference on %s/%s: %w", obj.GetKind(), obj.GetName(), err)
		}
		if err := r.applyObject(ctx, obj); err != nil {
			if obj.GetKind() == "Deployment" {
				return status.Blocked("Failed to replan with error: %v", err).Wrap(err)
			}
			return fmt.Errorf("failed to apply %s/%s: %w", obj.GetKind(), obj.GetName(), err)
		}
	}

	if changed {
		layerAppliedTotal.Inc()
		log.Info("Workload layer updated with new configuration", "hash", hash, "image", image)
		meta.SetStatusCondition(&server.Status.Conditions, metav1.Condition{
			Type:    ConditionProgressing,
			Status:  metav1.ConditionTrue,
			Reason:  "LayerApplied",
			Message: "New workload layer applied",
		})
	}
	return nil
}

// appliedLayer returns the layer and image the running Deployment was rolled
// out with. The layer is nil when the Deployment or the stored layer is
// missing, or when they disagree.
func (r *MLflowServerReconciler) appliedLayer(ctx context.Context, server *mlflowv1.MLflowServer) (*plan.Layer, string, error) {
	log := logf.FromContext(ctx)

	deployment := &appsv1.Deployment{}
	err := r.Get(ctx, types.NamespacedName{Name: server.Name, Namespace: server.Namespace}, deployment)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to get Deployment: %w", err)
	}

	image := ""
	for _, c := range deployment.Spec.Template.Spec.Containers {
		if c.Name == workload.ServiceName {
			image = c.Image
		}
	}

	secret := &corev1.Secret{}
	err = r.Get(ctx, types.NamespacedName{Name: layerSecretName(server.Name), Namespace: server.Namespace}, secret)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, image, nil
		}
		return nil, "", fmt.Errorf("failed to get layer Secret: %w", err)
	}

	if secret.Annotations[LayerHashAnnotation] != deployment.Spec.Template.Annotations[LayerHashAnnotation] {
		log.V(1).Info("Stored layer does not match the Deployment")
		return nil, image, nil
	}
	data := secret.Data[LayerSecretKey]
	if len(data) == 0 {
		return nil, image, nil
	}
	layer, err := workload.ParseLayer(data)
	if err != nil {
		log.Info("Ignoring unreadable stored layer", "error", err.Error())
		return nil, image, nil
	}
	return layer, image, nil
}

func isWorkloadObject(obj *unstructured.Unstructured, app string) bool {
	switch obj.GetKind() {
	case "Deployment":
		return obj.GetName() == app
	case "Secret":
		return obj.GetName() == layerSecretName(app)
	}
	return false
}

var applyOrder = map[string]int{
	"ServiceAccount": 0,
	"Secret":         1,
	"Service":        2,
	"Deployment":     3,
}

// sortForApply orders objects so the Deployment comes after everything it references
func sortForApply(objects []*unstructured.Unstructured) {
	rank := func(kind string) int {
		if order, ok := applyOrder[kind]; ok {
			return order
		}
		return len(applyOrder)
	}
	sort.SliceStable(objects, func(i, j int) bool {
		ri, rj := rank(objects[i].GetKind()), rank(objects[j].GetKind())
		if ri != rj {
			return ri < rj
		}
		return objects[i].GetName() < objects[j].GetName()
	})
}

func publishRelationData(ctx context.Context, broker *relation.Broker, interfaces map[string]*relation.Interface,
	server *mlflowv1.MLflowServer, store objectstore.Data) error {
	app, namespace, port := server.Name, server.Namespace, server.Spec.GetPort()

	if secrets := interfaces[relation.SecretsEndpoint]; secrets != nil {
		rendered, err := manifests.Render(manifests.SecretsFiles,
			manifests.NewSecretsContext(app, store.Endpoint(), store.AccessKey, store.SecretKey))
		if err != nil {
			return err
		}
		if err := secrets.Send(ctx, map[string]any{relation.SecretsEndpoint: rendered}); err != nil {
			return err
		}
	}

	if podDefaults := interfaces[relation.PodDefaultsEndpoint]; podDefaults != nil {
		rendered, err := manifests.Render(manifests.PodDefaultsFiles,
			manifests.NewPodDefaultsContext(app, namespace, port, store.Endpoint()))
		if err != nil {
			return err
		}
		if err := podDefaults.Send(ctx, map[string]any{relation.PodDefaultsEndpoint: rendered}); err != nil {
			return err
		}
	}

	if ingress := interfaces[relation.IngressEndpoint]; ingress != nil {
		err := ingress.Send(ctx, map[string]any{
			"service":   app,
			"namespace": namespace,
			"port":      int(port),
			"prefix":    IngressPrefix,
			"rewrite":   IngressRewrite,
		})
		if err != nil {
			return err
		}
	}

	provider := relation.NewMetricsEndpointProvider(broker, relation.MetricsEndpoint, []relation.ScrapeJob{{
		MetricsPath:   workload.MetricsPath,
		StaticConfigs: []relation.StaticConfig{{Targets: []string{fmt.Sprintf("*:%d", port)}}},
	}})
	_, err := provider.Publish(ctx, relation.ScrapeMetadata{
		Model:       namespace,
		Application: app,
		CharmName:   CharmName,
	})
	return err
}

// checkDeployment sets the Available condition from the Deployment readiness
func (r *MLflowServerReconciler) checkDeployment(ctx context.Context, server *mlflowv1.MLflowServer) (ctrl.Result, error) {
	deployment := &appsv1.Deployment{}
	err := r.Get(ctx, types.NamespacedName{Name: server.Name, Namespace: server.Namespace}, deployment)
	if err != nil {
		if !apierrors.IsNotFound(err) {
			return ctrl.Result{}, fmt.Errorf("failed to get Deployment: %w", err)
		}
		meta.SetStatusCondition(&server.Status.Conditions, metav1.Condition{
			Type:    ConditionAvailable,
			Status:  metav1.ConditionFalse,
			Reason:  "DeploymentMissing",
			Message: "MLflow deployment not created yet",
		})
		return ctrl.Result{RequeueAfter: notReadyRequeue}, nil
	}

	desiredReplicas := int32(1)
	if deployment.Spec.Replicas != nil {
		desiredReplicas = *deployment.Spec.Replicas
	}

	if desiredReplicas > 0 && deployment.Status.ReadyReplicas >= desiredReplicas {
		meta.SetStatusCondition(&server.Status.Conditions, metav1.Condition{
			Type:    ConditionAvailable,
			Status:  metav1.ConditionTrue,
			Reason:  "DeploymentReady",
			Message: "MLflow deployment is ready and available",
		})
		meta.SetStatusCondition(&server.Status.Conditions, metav1.Condition{
			Type:    ConditionProgressing,
			Status:  metav1.ConditionFalse,
			Reason:  "ReconcileComplete",
			Message: "MLflow reconciliation completed successfully",
		})
		return ctrl.Result{}, nil
	}

	message := fmt.Sprintf("MLflow deployment not ready: %d/%d replicas ready", deployment.Status.ReadyReplicas, desiredReplicas)
	if desiredReplicas == 0 {
		message = "MLflow deployment scaled to zero replicas"
	}
	meta.SetStatusCondition(&server.Status.Conditions, metav1.Condition{
		Type:    ConditionAvailable,
		Status:  metav1.ConditionFalse,
		Reason:  "DeploymentNotReady",
		Message: message,
	})
	return ctrl.Result{RequeueAfter: notReadyRequeue}, nil
}

// applyObject applies a single Kubernetes object using Server-Side Apply
func (r *MLflowServerReconciler) applyObject(ctx context.Context, obj client.Object) error {
	log := logf.FromContext(ctx)

	err := r.Patch(ctx, obj, client.Apply, client.ForceOwnership, client.FieldOwner(FieldOwner))
	if err != nil {
		log.Error(err, "Failed to apply object", "kind", obj.GetObjectKind().GroupVersionKind().Kind, "name", obj.GetName(), "namespace", obj.GetNamespace())
		return err
	}

	log.V(1).Info("Applied object", "kind", obj.GetObjectKind().GroupVersionKind().Kind, "name", obj.GetName(), "namespace", obj.GetNamespace())
	return nil
}

// updateStatus records phase and message for this unit, and for the
// application when this unit leads. An empty phase only copies conditions.
func (r *MLflowServerReconciler) updateStatus(ctx context.Context, server *mlflowv1.MLflowServer, leader bool, phase mlflowv1.Phase, message string) error {
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		latest := &mlflowv1.MLflowServer{}
		if err := r.Get(ctx, client.ObjectKeyFromObject(server), latest); err != nil {
			return err
		}
		if phase != "" {
			setUnitStatus(&latest.Status, mlflowv1.UnitStatus{Name: r.unitName(), Phase: phase, Message: message})
		}
		if leader {
			if phase != "" {
				latest.Status.Phase = phase
				latest.Status.Message = message
			}
			latest.Status.ObservedGeneration = latest.Generation
			for _, c := range server.Status.Conditions {
				meta.SetStatusCondition(&latest.Status.Conditions, c)
			}
		}
		return r.Status().Update(ctx, latest)
	})
	if err == nil && leader && phase != "" {
		recordPhase(server.Name, phase)
	}
	return err
}

func setUnitStatus(s *mlflowv1.MLflowServerStatus, unit mlflowv1.UnitStatus) {
	for i := range s.Units {
		if s.Units[i].Name == unit.Name {
			s.Units[i] = unit
			return
		}
	}
	s.Units = append(s.Units, unit)
	sort.Slice(s.Units, func(i, j int) bool { return s.Units[i].Name < s.Units[j].Name })
}

func (r *MLflowServerReconciler) finalize(ctx context.Context, server *mlflowv1.MLflowServer) error {
	if !controllerutil.ContainsFinalizer(server, ConsoleLinkFinalizer) || !r.isLeader() {
		return nil
	}
	if err := r.deleteConsoleLink(ctx, server); err != nil {
		return err
	}
	controllerutil.RemoveFinalizer(server, ConsoleLinkFinalizer)
	return r.Update(ctx, server)
}

func (r *MLflowServerReconciler) isLeader() bool {
	return r.Leader == nil || r.Leader.IsLeader()
}

func (r *MLflowServerReconciler) image(server *mlflowv1.MLflowServer) string {
	if server.Spec.Image != nil && *server.Spec.Image != "" {
		return *server.Spec.Image
	}
	return r.DefaultImage
}

func (r *MLflowServerReconciler) chartPath() string {
	if r.ChartPath == "" {
		return defaultChartPath
	}
	return r.ChartPath
}

func (r *MLflowServerReconciler) unitName() string {
	if r.UnitName == "" {
		return defaultUnitName
	}
	return r.UnitName
}

// SetupWithManager sets up the controller with the Manager.
// Every replica runs the controller so non-leaders can report their unit status.
func (r *MLflowServerReconciler) SetupWithManager(mgr ctrl.Manager) error {
	log := ctrl.Log.WithName("setup")

	builder := ctrl.NewControllerManagedBy(mgr).
		For(&mlflowv1.MLflowServer{}).
		Owns(&appsv1.Deployment{}).
		Owns(&corev1.Service{}).
		Owns(&corev1.ServiceAccount{}).
		// Secrets are either owned by a server or hold the remote side of one of its relations
		Watches(&corev1.Secret{}, handler.EnqueueRequestsFromMapFunc(r.secretToMLflowServerRequests)).
		WithOptions(controller.Options{NeedLeaderElection: ptr.To(false)})

	// Conditionally watch ConsoleLink if available in the cluster
	if r.ConsoleLinkAvailable {
		log.Info("ConsoleLink CRD available, adding to watch list")
		builder = builder.Watches(&consolev1.ConsoleLink{}, handler.EnqueueRequestsFromMapFunc(r.consoleLinkToMLflowServerRequests))
	} else {
		log.Info("ConsoleLink CRD not available, skipping watch")
	}

	// Conditionally watch HTTPRoute if available in the cluster
	if r.HTTPRouteAvailable {
		log.Info("HTTPRoute CRD available, adding to watch list")
		builder = builder.Owns(&gatewayv1.HTTPRoute{})
	} else {
		log.Info("HTTPRoute CRD not available, skipping watch")
	}

	return builder.Complete(r)
}

// secretToMLflowServerRequests maps a Secret to the server that owns it or
// that it relates to.
func (r *MLflowServerReconciler) secretToMLflowServerRequests(ctx context.Context, obj client.Object) []reconcile.Request {
	if owner := metav1.GetControllerOf(obj); owner != nil {
		if owner.APIVersion == mlflowv1.GroupVersion.String() && owner.Kind == "MLflowServer" {
			return []reconcile.Request{{NamespacedName: types.NamespacedName{Name: owner.Name, Namespace: obj.GetNamespace()}}}
		}
	}
	if app := obj.GetLabels()[relation.LabelApplication]; app != "" {
		return []reconcile.Request{{NamespacedName: types.NamespacedName{Name: app, Namespace: obj.GetNamespace()}}}
	}
	return nil
}

// consoleLinkToMLflowServerRequests maps the cluster-scoped ConsoleLink back to
// its server through the labels set when it was created.
func (r *MLflowServerReconciler) consoleLinkToMLflowServerRequests(ctx context.Context, obj client.Object) []reconcile.Request {
	labels := obj.GetLabels()
	name, namespace := labels[LabelServerName], labels[LabelServerNamespace]
	if name == "" || namespace == "" {
		return nil
	}
	return []reconcile.Request{{NamespacedName: types.NamespacedName{Name: name, Namespace: namespace}}}
}
