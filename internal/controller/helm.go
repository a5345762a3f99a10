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
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/engine"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/yaml"

	mlflowv1 "github.com/canonical/mlflow-operator/api/v1"
	"github.com/canonical/mlflow-operator/internal/database"
	"github.com/canonical/mlflow-operator/internal/objectstore"
	"github.com/canonical/mlflow-operator/internal/workload"
)

// HelmRenderer handles rendering of Helm charts
type HelmRenderer struct {
	chartPath string
}

// RenderOptions contains the workload state the chart is rendered for
type RenderOptions struct {
	// Image is the resolved workload image
	Image string
	// Container is the command and environment derived from the layer
	Container *workload.ContainerSpec
	// Layer is the encoded layer stored next to the Deployment
	Layer []byte
	// LayerHash is the hash of Layer, stamped on the pod template
	LayerHash string
	Database  database.ConnectionInfo
	Store     objectstore.Data
}

// NewHelmRenderer creates a new HelmRenderer
func NewHelmRenderer(chartPath string) *HelmRenderer {
	return &HelmRenderer{
		chartPath: chartPath,
	}
}

// secretRefs are the environment variables read from the rendered Secrets instead of set inline
func secretRefs(app string) map[string]workload.SecretRef {
	return map[string]workload.SecretRef{
		workload.EnvAWSAccessKeyID:     {Name: minioSecretName(app), Key: workload.EnvAWSAccessKeyID},
		workload.EnvAWSSecretAccessKey: {Name: minioSecretName(app), Key: workload.EnvAWSSecretAccessKey},
		workload.EnvDBRootPassword:     {Name: dbSecretName(app), Key: workload.EnvDBRootPassword},
		workload.EnvTrackingURI:        {Name: dbSecretName(app), Key: workload.EnvTrackingURI},
	}
}

// RenderChart renders the Helm chart with the given values
func (h *HelmRenderer) RenderChart(server *mlflowv1.MLflowServer, opts RenderOptions) ([]*unstructured.Unstructured, error) {
	// Load the Helm chart
	loadedChart, err := loader.Load(h.chartPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart: %w", err)
	}

	values, err := h.mlflowServerToHelmValues(server, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to convert MLflowServer spec to Helm values: %w", err)
	}

	rendered, err := h.renderTemplates(loadedChart, values, server.Name, server.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to render templates: %w", err)
	}

	return rendered, nil
}

// mlflowServerToHelmValues converts the MLflowServer spec and workload state to Helm values
func (h *HelmRenderer) mlflowServerToHelmValues(server *mlflowv1.MLflowServer, opts RenderOptions) (map[string]interface{}, error) {
	values := make(map[string]interface{})
	app := server.Name
	port := server.Spec.GetPort()

	values["appName"] = app
	values["namespace"] = server.Namespace
	values["commonLabels"] = map[string]interface{}{
		"app.kubernetes.io/instance": app,
	}

	values["image"] = map[string]interface{}{
		"name": opts.Image,
	}
	values["replicaCount"] = int32(1)

	values["serviceAccount"] = map[string]interface{}{
		"create": true,
		"name":   app,
	}

	// The Service port is named after the application
	serviceType := string(corev1.ServiceTypeClusterIP)
	if server.Spec.GetEnableNodePort() {
		serviceType = string(corev1.ServiceTypeNodePort)
	}
	values["service"] = map[string]interface{}{
		"type":     serviceType,
		"port":     port,
		"nodePort": server.Spec.GetNodePort(),
	}

	values["mlflow"] = map[string]interface{}{
		"port":        port,
		"metricsPath": workload.MetricsPath,
	}

	container := map[string]interface{}{
		"name":    workload.ServiceName,
		"command": []interface{}{},
		"args":    []interface{}{},
		"env":     []interface{}{},
	}
	if opts.Container != nil {
		container["command"] = toInterfaceSlice(opts.Container.Command)
		container["args"] = toInterfaceSlice(opts.Container.Args)

		env := make([]interface{}, 0, len(opts.Container.Env))
		for i, e := range opts.Container.Env {
			envMap, err := runtime.DefaultUnstructuredConverter.ToUnstructured(&e)
			if err != nil {
				return nil, fmt.Errorf("failed to convert env[%d]: %w", i, err)
			}
			env = append(env, envMap)
		}
		container["env"] = env
	}
	values["container"] = container

	values["layer"] = map[string]interface{}{
		"secretName": layerSecretName(app),
		"key":        LayerSecretKey,
		"data":       string(opts.Layer),
		"hash":       opts.LayerHash,
	}

	values["secrets"] = map[string]interface{}{
		"db": map[string]interface{}{
			"name":         dbSecretName(app),
			"rootPassword": opts.Database.Password,
			"trackingUri":  workload.TrackingURI(opts.Database),
		},
		"minio": map[string]interface{}{
			"name":      minioSecretName(app),
			"accessKey": opts.Store.AccessKey,
			"secretKey": opts.Store.SecretKey,
		},
	}

	return values, nil
}

func toInterfaceSlice(in []string) []interface{} {
	out := make([]interface{}, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}

// renderTemplates renders the Helm templates with the given values
func (h *HelmRenderer) renderTemplates(c *chart.Chart, values map[string]interface{}, release, namespace string) ([]*unstructured.Unstructured, error) {
	releaseOptions := chartutil.ReleaseOptions{
		Name:      release,
		Namespace: namespace,
		IsInstall: true,
	}

	// Generate values with built-in objects
	valuesToRender, err := chartutil.ToRenderValues(c, values, releaseOptions, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare values: %w", err)
	}

	renderedTemplates, err := engine.Render(c, valuesToRender)
	if err != nil {
		return nil, fmt.Errorf("failed to render templates: %w", err)
	}

	// Parse rendered YAML into unstructured objects
	var objects []*unstructured.Unstructured
	for name, content := range renderedTemplates {
		// Skip empty files, helpers and notes
		if len(content) == 0 || filepath.Base(name) == "NOTES.txt" {
			continue
		}

		// Parse YAML documents (may contain multiple documents separated by ---)
		decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewBufferString(content), 4096)
		for {
			obj := &unstructured.Unstructured{}
			err := decoder.Decode(obj)
			if err != nil {
				if err == io.EOF {
					break
				}
				return nil, fmt.Errorf("failed to decode template %s: %w", name, err)
			}

			if len(obj.Object) == 0 {
				continue
			}

			objects = append(objects, obj)
		}
	}

	return objects, nil
}
