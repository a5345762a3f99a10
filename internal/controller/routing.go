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
	_ "embed"
	"encoding/base64"
	"fmt"
	"strings"

	consolev1 "github.com/openshift/api/console/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	mlflowv1 "github.com/canonical/mlflow-operator/api/v1"
	"github.com/canonical/mlflow-operator/internal/config"
)

//go:embed assets/mlflow_console_link_icon.svg
var consoleLinkIconSVG []byte

// IsConsoleLinkAvailable checks if ConsoleLink CRD is available in the cluster using discovery API
func IsConsoleLinkAvailable(discoveryClient discovery.DiscoveryInterface) (bool, error) {
	return isKindAvailable(discoveryClient, schema.GroupVersion{Group: "console.openshift.io", Version: "v1"}, "ConsoleLink")
}

// IsHTTPRouteAvailable checks if HTTPRoute CRD is available in the cluster using discovery API
func IsHTTPRouteAvailable(discoveryClient discovery.DiscoveryInterface) (bool, error) {
	return isKindAvailable(discoveryClient, gatewayv1.SchemeGroupVersion, "HTTPRoute")
}

func isKindAvailable(discoveryClient discovery.DiscoveryInterface, gv schema.GroupVersion, kind string) (bool, error) {
	log := logf.Log.WithName("discovery")

	resourceList, err := discoveryClient.ServerResourcesForGroupVersion(gv.String())
	if err != nil {
		// If we get a NotFound error, the API group doesn't exist
		if errors.IsNotFound(err) || discovery.IsGroupDiscoveryFailedError(err) {
			log.V(1).Info("CRD not available in cluster", "kind", kind)
			return false, nil
		}
		return false, fmt.Errorf("failed to check for %s availability: %w", kind, err)
	}

	for _, resource := range resourceList.APIResources {
		if resource.Kind == kind {
			log.V(1).Info("CRD is available in cluster", "kind", kind)
			return true, nil
		}
	}

	log.V(1).Info("CRD not found in resource list", "kind", kind)
	return false, nil
}

// consoleLinkName is unique across namespaces since ConsoleLinks are cluster-scoped
func consoleLinkName(server *mlflowv1.MLflowServer) string {
	return server.Namespace + "-" + server.Name
}

// reconcileConsoleLink creates or updates the ConsoleLink for the server.
// ConsoleLinks are cluster-scoped and cannot be owned by a namespaced server,
// so they are labelled with the server and removed by a finalizer.
func (r *MLflowServerReconciler) reconcileConsoleLink(ctx context.Context, server *mlflowv1.MLflowServer) error {
	log := logf.FromContext(ctx)

	if !r.ConsoleLinkAvailable {
		log.V(1).Info("Skipping ConsoleLink creation - not available in cluster")
		return nil
	}

	cfg := config.GetConfig()
	if cfg.MLflowURL == "" {
		log.V(1).Info("Skipping ConsoleLink creation - MLFLOW_URL not set")
		return nil
	}

	name := consoleLinkName(server)
	iconDataURL := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(consoleLinkIconSVG)

	consoleLink := &consolev1.ConsoleLink{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "console.openshift.io/v1",
			Kind:       "ConsoleLink",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: name,
			Labels: map[string]string{
				LabelServerName:      server.Name,
				LabelServerNamespace: server.Namespace,
			},
		},
		Spec: consolev1.ConsoleLinkSpec{
			Link: consolev1.Link{
				Text: "MLflow",
				Href: strings.TrimSuffix(cfg.MLflowURL, "/") + IngressPrefix,
			},
			Location: consolev1.ApplicationMenu,
			ApplicationMenu: &consolev1.ApplicationMenuSpec{
				Section:  cfg.SectionTitle,
				ImageURL: iconDataURL,
			},
		},
	}

	if err := r.applyObject(ctx, consoleLink); err != nil {
		log.Error(err, "Failed to apply ConsoleLink", "name", name)
		return err
	}

	log.V(1).Info("Successfully reconciled ConsoleLink", "name", name)
	return nil
}

// deleteConsoleLink removes the server's ConsoleLink, if any
func (r *MLflowServerReconciler) deleteConsoleLink(ctx context.Context, server *mlflowv1.MLflowServer) error {
	consoleLink := &consolev1.ConsoleLink{ObjectMeta: metav1.ObjectMeta{Name: consoleLinkName(server)}}
	err := r.Delete(ctx, consoleLink)
	if err == nil || errors.IsNotFound(err) || meta.IsNoMatchError(err) {
		return nil
	}
	return fmt.Errorf("failed to delete ConsoleLink: %w", err)
}

// reconcileHTTPRoute exposes the server under IngressPrefix on the configured Gateway
func (r *MLflowServerReconciler) reconcileHTTPRoute(ctx context.Context, server *mlflowv1.MLflowServer) error {
	log := logf.FromContext(ctx)

	if !r.HTTPRouteAvailable {
		log.V(1).Info("Skipping HTTPRoute creation - not available in cluster")
		return nil
	}

	cfg := config.GetConfig()
	gatewayName, gatewayNamespace := cfg.GatewayName, cfg.GatewayNamespace
	if gw := server.Spec.Gateway; gw != nil {
		gatewayName = gw.Name
		if gw.Namespace != nil {
			gatewayNamespace = *gw.Namespace
		}
	}
	if gatewayName == "" {
		log.V(1).Info("Skipping HTTPRoute creation - no Gateway configured")
		return nil
	}

	pathPrefix := strings.TrimSuffix(IngressPrefix, "/")
	replacePrefix := IngressRewrite
	pathMatchType := gatewayv1.PathMatchPathPrefix
	servicePort := gatewayv1.PortNumber(server.Spec.GetPort())
	weight := int32(1)

	parentRef := gatewayv1.ParentReference{Name: gatewayv1.ObjectName(gatewayName)}
	if gatewayNamespace != "" {
		parentRef.Namespace = (*gatewayv1.Namespace)(&gatewayNamespace)
	}

	httpRoute := &gatewayv1.HTTPRoute{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "gateway.networking.k8s.io/v1",
			Kind:       "HTTPRoute",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      server.Name,
			Namespace: server.Namespace,
			Labels: map[string]string{
				"app.kubernetes.io/name": server.Name,
			},
		},
		Spec: gatewayv1.HTTPRouteSpec{
			CommonRouteSpec: gatewayv1.CommonRouteSpec{
				ParentRefs: []gatewayv1.ParentReference{parentRef},
			},
			Rules: []gatewayv1.HTTPRouteRule{
				{
					Matches: []gatewayv1.HTTPRouteMatch{
						{
							Path: &gatewayv1.HTTPPathMatch{
								Type:  &pathMatchType,
								Value: &pathPrefix,
							},
						},
					},
					Filters: []gatewayv1.HTTPRouteFilter{
						{
							Type: gatewayv1.HTTPRouteFilterURLRewrite,
							URLRewrite: &gatewayv1.HTTPURLRewriteFilter{
								Path: &gatewayv1.HTTPPathModifier{
									Type:               gatewayv1.PrefixMatchHTTPPathModifier,
									ReplacePrefixMatch: &replacePrefix,
								},
							},
						},
					},
					BackendRefs: []gatewayv1.HTTPBackendRef{
						{
							BackendRef: gatewayv1.BackendRef{
								BackendObjectReference: gatewayv1.BackendObjectReference{
									Name: gatewayv1.ObjectName(server.Name),
									Port: &servicePort,
								},
								Weight: &weight,
							},
						},
					},
				},
			},
		},
	}

	if err := controllerutil.SetControllerReference(server, httpRoute, r.Scheme); err != nil {
		return fmt.Errorf("failed to set controller reference on HTTPRoute: %w", err)
	}

	if err := r.applyObject(ctx, httpRoute); err != nil {
		log.Error(err, "Failed to apply HTTPRoute", "name", server.Name)
		return err
	}

	log.V(1).Info("Successfully reconciled HTTPRoute", "name", server.Name, "pathPrefix", pathPrefix)
	return nil
}
