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

// Package workload describes the mlflow-server container as a Pebble layer and
// turns that layer into the command and environment of a Kubernetes container.
package workload

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"github.com/canonical/pebble/internals/plan"
	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"
	corev1 "k8s.io/api/core/v1"

	"github.com/canonical/mlflow-operator/internal/database"
	"github.com/canonical/mlflow-operator/internal/objectstore"
)

const (
	// ServiceName is the name of the Pebble service and of the container
	ServiceName = "mlflow-server"
	// LayerLabel labels the layer in the plan
	LayerLabel = "mlflow-server"
	// MetricsPath is where the server exposes Prometheus metrics
	MetricsPath = "/metrics"
)

// Environment variable names
const (
	EnvS3EndpointURL      = "MLFLOW_S3_ENDPOINT_URL"
	EnvAWSEndpointURL     = "AWS_ENDPOINT_URL"
	EnvAWSAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvAWSSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvUseSSL             = "USE_SSL"
	EnvDBRootPassword     = "DB_ROOT_PASSWORD"
	EnvTrackingURI        = "MLFLOW_TRACKING_URI"
)

// Environment is the server environment for the given database and object store
func Environment(db database.ConnectionInfo, store objectstore.Data) map[string]string {
	endpoint := store.Endpoint()
	return map[string]string{
		EnvS3EndpointURL:      endpoint,
		EnvAWSEndpointURL:     endpoint,
		EnvAWSAccessKeyID:     store.AccessKey,
		EnvAWSSecretAccessKey: store.SecretKey,
		EnvUseSSL:             strconv.FormatBool(store.Secure),
		EnvDBRootPassword:     db.Password,
		EnvTrackingURI:        TrackingURI(db),
	}
}

// TrackingURI is the backend store URI of the server
func TrackingURI(db database.ConnectionInfo) string {
	return db.TrackingURI()
}

// Command is the server command line
func Command(port int32, bucket string) string {
	return fmt.Sprintf("mlflow server --host 0.0.0.0 --port %d --backend-store-uri $(%s) "+
		"--default-artifact-root s3://%s/ --expose-prometheus %s",
		port, EnvTrackingURI, bucket, MetricsPath)
}

// BuildLayer returns the layer that runs the server
func BuildLayer(port int32, bucket string, env map[string]string) *plan.Layer {
	return &plan.Layer{
		Label:       LayerLabel,
		Summary:     "mlflow-server layer",
		Description: "Pebble config layer for mlflow-server",
		Services: map[string]*plan.Service{
			ServiceName: {
				Name:        ServiceName,
				Summary:     "Entrypoint of mlflow-server image",
				Override:    plan.ReplaceOverride,
				Command:     Command(port, bucket),
				Startup:     plan.StartupEnabled,
				Environment: env,
			},
		},
	}
}

// MarshalLayer encodes layer as YAML
func MarshalLayer(layer *plan.Layer) ([]byte, error) {
	data, err := yaml.Marshal(layer)
	if err != nil {
		return nil, fmt.Errorf("failed to encode layer: %w", err)
	}
	return data, nil
}

// ParseLayer decodes and validates a layer previously encoded with MarshalLayer
func ParseLayer(data []byte) (*plan.Layer, error) {
	layer, err := plan.ParseLayer(0, LayerLabel, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse layer: %w", err)
	}
	return layer, nil
}

// ServicesEqual reports whether two layers define the same services.
// A nil layer has no services. Services are compared in their encoded form.
func ServicesEqual(a, b *plan.Layer) bool {
	encodedA, errA := yaml.Marshal(services(a))
	encodedB, errB := yaml.Marshal(services(b))
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(encodedA, encodedB)
}

func services(layer *plan.Layer) map[string]*plan.Service {
	if layer == nil || len(layer.Services) == 0 {
		return nil
	}
	return layer.Services
}

// Hash is the hex sha256 of the encoded layer
func Hash(layer *plan.Layer) (string, error) {
	data, err := MarshalLayer(layer)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// SecretRef points an environment variable at a key of a Secret
type SecretRef struct {
	Name string
	Key  string
}

// ContainerSpec is the part of a container derived from the layer
type ContainerSpec struct {
	Command []string
	Args    []string
	Env     []corev1.EnvVar
}

// NewContainerSpec splits the service command into the container command and
// arguments. Environment variables listed in secretRefs are read from Secrets;
// the rest are set inline. Variables are ordered by name.
func NewContainerSpec(layer *plan.Layer, secretRefs map[string]SecretRef) (*ContainerSpec, error) {
	service, ok := layer.Services[ServiceName]
	if !ok {
		return nil, fmt.Errorf("layer has no %s service", ServiceName)
	}

	words, err := shellquote.Split(service.Command)
	if err != nil {
		return nil, fmt.Errorf("failed to split command %q: %w", service.Command, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("service %s has an empty command", ServiceName)
	}

	names := make([]string, 0, len(service.Environment))
	for name := range service.Environment {
		names = append(names, name)
	}
	sort.Strings(names)

	env := make([]corev1.EnvVar, 0, len(names))
	for _, name := range names {
		if ref, ok := secretRefs[name]; ok {
			env = append(env, corev1.EnvVar{
				Name: name,
				ValueFrom: &corev1.EnvVarSource{
					SecretKeyRef: &corev1.SecretKeySelector{
						LocalObjectReference: corev1.LocalObjectReference{Name: ref.Name},
						Key:                  ref.Key,
					},
				},
			})
			continue
		}
		env = append(env, corev1.EnvVar{Name: name, Value: service.Environment[name]})
	}

	return &ContainerSpec{
		Command: words[:1],
		Args:    words[1:],
		Env:     env,
	}, nil
}
