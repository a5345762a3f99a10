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

import "time"

const (
	// CharmName identifies the server in scrape metadata
	CharmName = "mlflow-server"
	// FieldOwner is the server-side apply field manager
	FieldOwner = "mlflow-operator"

	// IngressPrefix is the path prefix requested from the ingress relation
	IngressPrefix = "/mlflow/"
	// IngressRewrite is what IngressPrefix is rewritten to
	IngressRewrite = "/"

	// LayerHashAnnotation carries the hash of the applied layer on the pod template
	LayerHashAnnotation = "mlflow.charmed.io/layer-hash"
	// LayerSecretKey is the key of the layer in the layer Secret
	LayerSecretKey = "layer.yaml"

	// ConsoleLinkFinalizer removes the cluster-scoped ConsoleLink of a server
	ConsoleLinkFinalizer = "mlflow.charmed.io/console-link"
	// LabelServerName and LabelServerNamespace tie cluster-scoped objects to their server
	LabelServerName      = "mlflow.charmed.io/name"
	LabelServerNamespace = "mlflow.charmed.io/namespace"

	// ConditionAvailable is true when the tracking server deployment is ready
	ConditionAvailable = "Available"
	// ConditionProgressing is true while the workload is being changed
	ConditionProgressing = "Progressing"

	notReadyRequeue = 10 * time.Second
	waitingRequeue  = 30 * time.Second
)

func dbSecretName(app string) string {
	return app + "-db-secret"
}

func minioSecretName(app string) string {
	return app + "-minio-secret"
}

func layerSecretName(app string) string {
	return app + "-pebble-layer"
}
