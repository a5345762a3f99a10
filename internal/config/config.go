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

package config

import (
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// OperatorConfig holds the configuration for the MLflow server operator
type OperatorConfig struct {
	// MLflowImage is the default workload image used when an MLflowServer does not set one.
	// An empty value leaves such servers Blocked.
	MLflowImage string
	// UnitName identifies this operator replica in MLflowServer unit statuses
	UnitName string
	// GatewayName is the default Gateway HTTPRoutes are attached to
	GatewayName string
	// GatewayNamespace is the namespace of the default Gateway
	GatewayNamespace string
	// MLflowURL is the base URL used for console links
	MLflowURL string
	// SectionTitle is the console application menu section
	SectionTitle string
	// DatabaseProbe enables connecting to the related database before rolling out the server
	DatabaseProbe bool
	// DatabaseProbeTimeout bounds a single database probe
	DatabaseProbeTimeout time.Duration
}

var (
	instance *OperatorConfig
	once     sync.Once
)

// GetConfig returns the singleton operator configuration
// It reads from environment variables using viper
func GetConfig() *OperatorConfig {
	once.Do(func() {
		instance = load(viper.New())
	})
	return instance
}

func load(v *viper.Viper) *OperatorConfig {
	v.AutomaticEnv()
	// An explicitly empty MLFLOW_IMAGE disables the default image.
	v.AllowEmptyEnv(true)

	// Set defaults (these can be overridden by env vars)
	v.SetDefault("MLFLOW_IMAGE", "docker.io/charmedkubeflow/mlflow:2.15.1")
	v.SetDefault("POD_NAME", hostname())
	v.SetDefault("GATEWAY_NAME", "kubeflow-gateway")
	v.SetDefault("GATEWAY_NAMESPACE", "kubeflow")
	v.SetDefault("MLFLOW_URL", "")
	v.SetDefault("SECTION_TITLE", "Charmed Kubeflow")
	v.SetDefault("DATABASE_PROBE", false)
	v.SetDefault("DATABASE_PROBE_TIMEOUT", 5*time.Second)

	return &OperatorConfig{
		MLflowImage:          v.GetString("MLFLOW_IMAGE"),
		UnitName:             v.GetString("POD_NAME"),
		GatewayName:          v.GetString("GATEWAY_NAME"),
		GatewayNamespace:     v.GetString("GATEWAY_NAMESPACE"),
		MLflowURL:            v.GetString("MLFLOW_URL"),
		SectionTitle:         v.GetString("SECTION_TITLE"),
		DatabaseProbe:        v.GetBool("DATABASE_PROBE"),
		DatabaseProbeTimeout: v.GetDuration("DATABASE_PROBE_TIMEOUT"),
	}
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "mlflow-operator-0"
	}
	return name
}
