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
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	mlflowv1 "github.com/canonical/mlflow-operator/api/v1"
)

var (
	reconcileStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mlflow_server_reconcile_status",
			Help: "Phase of each MLflow server after its last reconciliation pass (1 for the current phase)",
		},
		[]string{"app", "phase"},
	)

	bucketCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mlflow_server_bucket_created_total",
		Help: "Number of default artifact root buckets created",
	})

	layerAppliedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mlflow_server_layer_applied_total",
		Help: "Number of workload layers applied",
	})
)

var phases = []mlflowv1.Phase{
	mlflowv1.PhaseActive,
	mlflowv1.PhaseWaiting,
	mlflowv1.PhaseBlocked,
	mlflowv1.PhaseMaintenance,
}

func init() {
	metrics.Registry.MustRegister(reconcileStatus, bucketCreatedTotal, layerAppliedTotal)
}

func recordPhase(app string, phase mlflowv1.Phase) {
	for _, p := range phases {
		value := 0.0
		if p == phase {
			value = 1
		}
		reconcileStatus.WithLabelValues(app, string(p)).Set(value)
	}
}
