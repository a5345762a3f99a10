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

// Package manifests renders the Kubernetes manifests handed to the secrets and
// pod-defaults relations.
package manifests

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"sigs.k8s.io/yaml"
)

//go:embed templates/*.yaml
var templatesFS embed.FS

var templates = template.Must(
	template.New("manifests").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").ParseFS(templatesFS, "templates/*.yaml"),
)

var (
	// SecretsFiles are sent on the secrets relation
	SecretsFiles = []string{
		"mlflow-minio-artifact.yaml",
		"mlflow-seldon-rclone-secret.yaml",
	}
	// PodDefaultsFiles are sent on the pod-defaults relation
	PodDefaultsFiles = []string{
		"poddefault-minio.yaml",
		"poddefault-mlflow.yaml",
	}
)

// SecretsContext fills the secrets templates
type SecretsContext struct {
	AppName         string
	S3Endpoint      string
	S3Type          string
	S3Provider      string
	AccessKey       string
	SecretAccessKey string
}

// NewSecretsContext returns the context for a MinIO-backed S3 store
func NewSecretsContext(app, endpoint, accessKey, secretKey string) SecretsContext {
	return SecretsContext{
		AppName:         app,
		S3Endpoint:      endpoint,
		S3Type:          "s3",
		S3Provider:      "minio",
		AccessKey:       accessKey,
		SecretAccessKey: secretKey,
	}
}

// PodDefaultsContext fills the pod-defaults templates
type PodDefaultsContext struct {
	AppName        string
	S3Endpoint     string
	MLflowEndpoint string
}

// NewPodDefaultsContext returns the context for the server reachable at app.namespace:port
func NewPodDefaultsContext(app, namespace string, port int32, s3Endpoint string) PodDefaultsContext {
	return PodDefaultsContext{
		AppName:        app,
		S3Endpoint:     s3Endpoint,
		MLflowEndpoint: fmt.Sprintf("http://%s.%s.svc.cluster.local:%d", app, namespace, port),
	}
}

// Render executes each named template with data and returns the resulting
// manifests as a JSON list.
func Render(files []string, data any) (string, error) {
	manifests := make([]json.RawMessage, 0, len(files))
	for _, file := range files {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, file, data); err != nil {
			return "", fmt.Errorf("failed to render %s: %w", file, err)
		}
		manifest, err := yaml.YAMLToJSON(buf.Bytes())
		if err != nil {
			return "", fmt.Errorf("failed to convert %s to JSON: %w", file, err)
		}
		manifests = append(manifests, manifest)
	}

	encoded, err := json.Marshal(manifests)
	if err != nil {
		return "", fmt.Errorf("failed to encode manifests: %w", err)
	}
	return string(encoded), nil
}
