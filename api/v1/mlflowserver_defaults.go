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

// Defaults applied when a field is unset, matching the kubebuilder defaults above.
const (
	DefaultPort                = int32(5000)
	DefaultArtifactRootBucket  = "mlflow"
	DefaultNodePort            = int32(31380)
	DefaultAdminUser           = "admin"
	defaultCreateArtifactRoot  = true
	defaultEnableNodePortValue = false
)

// GetPort returns the server port
func (s *MLflowServerSpec) GetPort() int32 {
	if s.Port == nil {
		return DefaultPort
	}
	return *s.Port
}

// GetDefaultArtifactRoot returns the default artifact root bucket name
func (s *MLflowServerSpec) GetDefaultArtifactRoot() string {
	if s.DefaultArtifactRoot == nil {
		return DefaultArtifactRootBucket
	}
	return *s.DefaultArtifactRoot
}

// GetCreateDefaultArtifactRootIfMissing reports whether a missing bucket is created
func (s *MLflowServerSpec) GetCreateDefaultArtifactRootIfMissing() bool {
	if s.CreateDefaultArtifactRootIfMissing == nil {
		return defaultCreateArtifactRoot
	}
	return *s.CreateDefaultArtifactRootIfMissing
}

// GetEnableNodePort reports whether the Service is a NodePort
func (s *MLflowServerSpec) GetEnableNodePort() bool {
	if s.EnableNodePort == nil {
		return defaultEnableNodePortValue
	}
	return *s.EnableNodePort
}

// GetNodePort returns the node port
func (s *MLflowServerSpec) GetNodePort() int32 {
	if s.NodePort == nil {
		return DefaultNodePort
	}
	return *s.NodePort
}

// GetAdminUser returns the object storage admin user
func (s *MLflowServerSpec) GetAdminUser() string {
	if s.AdminUser == nil {
		return DefaultAdminUser
	}
	return *s.AdminUser
}
