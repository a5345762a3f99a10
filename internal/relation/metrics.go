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

package relation

import (
	"context"
	"encoding/json"
	"fmt"
)

// StaticConfig is a Prometheus static_configs entry
type StaticConfig struct {
	Targets []string `json:"targets"`
}

// ScrapeJob is a Prometheus scrape job offered to a metrics consumer
type ScrapeJob struct {
	MetricsPath   string         `json:"metrics_path"`
	StaticConfigs []StaticConfig `json:"static_configs"`
}

// ScrapeMetadata identifies the application behind the scrape jobs
type ScrapeMetadata struct {
	Model       string `json:"model"`
	Application string `json:"application"`
	CharmName   string `json:"charm_name"`
}

// MetricsEndpointProvider offers scrape jobs on the metrics-endpoint relation
type MetricsEndpointProvider struct {
	broker   *Broker
	endpoint string
	jobs     []ScrapeJob
}

// NewMetricsEndpointProvider offers jobs on endpoint
func NewMetricsEndpointProvider(b *Broker, endpoint string, jobs []ScrapeJob) *MetricsEndpointProvider {
	return &MetricsEndpointProvider{broker: b, endpoint: endpoint, jobs: jobs}
}

// Publish writes scrape_jobs and scrape_metadata to every relation on the endpoint.
// It returns the number of relations updated.
func (m *MetricsEndpointProvider) Publish(ctx context.Context, metadata ScrapeMetadata) (int, error) {
	relations, err := m.broker.Relations(ctx, m.endpoint)
	if err != nil {
		return 0, err
	}
	if len(relations) == 0 {
		return 0, nil
	}

	jobs, err := json.Marshal(m.jobs)
	if err != nil {
		return 0, fmt.Errorf("failed to encode scrape jobs: %w", err)
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to encode scrape metadata: %w", err)
	}

	for _, rel := range relations {
		err := m.broker.Publish(ctx, rel, map[string]string{
			"scrape_jobs":     string(jobs),
			"scrape_metadata": string(meta),
		})
		if err != nil {
			return 0, err
		}
	}
	return len(relations), nil
}
