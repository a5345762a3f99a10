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

import "github.com/juju/schema"

var objectStorageV1 = schema.FieldMap(
	schema.Fields{
		"access-key": schema.String(),
		"secret-key": schema.String(),
		"service":    schema.String(),
		"namespace":  schema.String(),
		"port":       schema.ForceInt(),
		"secure":     schema.Bool(),
	},
	schema.Defaults{
		"namespace": schema.Omit,
		"secure":    false,
	},
)

var ingressV1 = schema.FieldMap(
	schema.Fields{
		"service":   schema.String(),
		"port":      schema.ForceInt(),
		"namespace": schema.String(),
		"prefix":    schema.String(),
		"rewrite":   schema.String(),
	},
	schema.Defaults{
		"namespace": schema.Omit,
		"rewrite":   schema.Omit,
	},
)

var secretsV1 = schema.FieldMap(
	schema.Fields{SecretsEndpoint: schema.String()},
	schema.Defaults{},
)

var podDefaultsV1 = schema.FieldMap(
	schema.Fields{PodDefaultsEndpoint: schema.String()},
	schema.Defaults{},
)

// Interfaces are the versioned interfaces the MLflow server speaks, by endpoint
var Interfaces = map[string]InterfaceSpec{
	ObjectStorageEndpoint: {"v1": objectStorageV1},
	IngressEndpoint:       {"v1": ingressV1},
	SecretsEndpoint:       {"v1": secretsV1},
	PodDefaultsEndpoint:   {"v1": podDefaultsV1},
}
