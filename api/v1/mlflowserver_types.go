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

package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// MLflowServerSpec defines the desired state of MLflowServer
// +kubebuilder:validation:XValidation:rule="!has(self.enableNodePort) || !self.enableNodePort || has(self.nodePort)",message="nodePort must be set when enableNodePort is true"
type MLflowServerSpec struct {
	// Image is the MLflow workload image (includes tag).
	// If not specified, the operator falls back to the MLFLOW_IMAGE environment variable.
	// When neither is set the server is reported as Blocked.
	// +optional
	Image *string `json:"image,omitempty"`

	// Port is the port the MLflow tracking server listens on
	// +kubebuilder:default=5000
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=65535
	// +optional
	Port *int32 `json:"port,omitempty"`

	// DefaultArtifactRoot is the name of the S3 bucket used as the default artifact root.
	// The value must be a valid S3 bucket name. The server is started with
	// --default-artifact-root s3://<defaultArtifactRoot>/
	// +kubebuilder:default="mlflow"
	// +optional
	DefaultArtifactRoot *string `json:"defaultArtifactRoot,omitempty"`

	// CreateDefaultArtifactRootIfMissing creates the default artifact root bucket
	// when it is not accessible in the related object storage.
	// +kubebuilder:default=true
	// +optional
	CreateDefaultArtifactRootIfMissing *bool `json:"createDefaultArtifactRootIfMissing,omitempty"`

	// EnableNodePort exposes the tracking server through a NodePort Service instead of ClusterIP
	// +kubebuilder:default=false
	// +optional
	EnableNodePort *bool `json:"enableNodePort,omitempty"`

	// NodePort is the node port used when EnableNodePort is true
	// +kubebuilder:default=31380
	// +kubebuilder:validation:Minimum=30000
	// +kubebuilder:validation:Maximum=32767
	// +optional
	NodePort *int32 `json:"nodePort,omitempty"`

	// AdminUser is the object storage administrator user name.
	// It is compared against the related access key by the get-minio-password action.
	// +kubebuilder:default="admin"
	// +optional
	AdminUser *string `json:"adminUser,omitempty"`

	// Gateway is the Gateway an HTTPRoute is attached to when the Gateway API is available.
	// If not specified, the operator-wide GATEWAY_NAME and GATEWAY_NAMESPACE (default kubeflow) are used.
	// +optional
	Gateway *GatewayReference `json:"gateway,omitempty"`
}

// GatewayReference identifies a Gateway API Gateway
type GatewayReference struct {
	// Name of the Gateway
	// +kubebuilder:validation:MinLength=1
	Name string `json:"name"`

	// Namespace of the Gateway
	// +optional
	Namespace *string `json:"namespace,omitempty"`
}

// Phase is the externally visible status of an MLflowServer or one of its units.
// +kubebuilder:validation:Enum=Active;Waiting;Blocked;Maintenance
type Phase string

const (
	// PhaseActive means the last reconciliation pass converged.
	PhaseActive Phase = "Active"
	// PhaseWaiting means the pass stopped on a missing dependency.
	PhaseWaiting Phase = "Waiting"
	// PhaseBlocked means the pass stopped on a misconfiguration that needs a human.
	PhaseBlocked Phase = "Blocked"
	// PhaseMaintenance means the workload is being changed.
	PhaseMaintenance Phase = "Maintenance"
)

// UnitStatus is the status reported by a single operator replica
type UnitStatus struct {
	// Name is the operator pod that reported the status
	Name string `json:"name"`

	// Phase of the unit
	Phase Phase `json:"phase"`

	// Message explains the phase
	// +optional
	Message string `json:"message,omitempty"`
}

// MLflowServerStatus defines the observed state of MLflowServer.
type MLflowServerStatus struct {
	// Phase is the application status as reported by the leader
	// +optional
	Phase Phase `json:"phase,omitempty"`

	// Message explains the phase
	// +optional
	Message string `json:"message,omitempty"`

	// Units holds the status reported by each operator replica
	// +listType=map
	// +listMapKey=name
	// +optional
	Units []UnitStatus `json:"units,omitempty"`

	// ObservedGeneration is the generation last handled by the leader
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// conditions represent the current state of the MLflowServer resource.
	//
	// Standard condition types include:
	// - "Available": the tracking server deployment is ready
	// - "Progressing": the resource is being created or updated
	// +listType=map
	// +listMapKey=type
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=mlf
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Message",type=string,JSONPath=`.status.message`
// +kubebuilder:validation:XValidation:rule="self.metadata.name.size() <= 40",message="MLflowServer name must be at most 40 characters to ensure generated resource names stay within Kubernetes 63-character limit"

// MLflowServer is the Schema for the mlflowservers API
type MLflowServer struct {
	metav1.TypeMeta `json:",inline"`

	// metadata is a standard object metadata
	// +optional
	metav1.ObjectMeta `json:"metadata,omitzero"`

	// spec defines the desired state of MLflowServer
	// +required
	Spec MLflowServerSpec `json:"spec"`

	// status defines the observed state of MLflowServer
	// +optional
	Status MLflowServerStatus `json:"status,omitzero"`
}

// +kubebuilder:object:root=true

// MLflowServerList contains a list of MLflowServer
type MLflowServerList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitzero"`
	Items           []MLflowServer `json:"items"`
}

func init() {
	SchemeBuilder.Register(&MLflowServer{}, &MLflowServerList{})
}
