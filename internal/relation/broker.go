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

// Package relation exchanges data with related applications.
//
// A relation is a Secret in the application's namespace labelled with the
// application, the endpoint and the remote application. The Secret's data is
// the remote application's data bag. This application's data bag for the same
// relation is a Secret it owns, named after the relation.
package relation

import (
	"context"
	"fmt"
	"sort"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	// LabelApplication names the application a relation Secret belongs to
	LabelApplication = "relation.mlflow.charmed.io/application"
	// LabelEndpoint names the endpoint of the relation
	LabelEndpoint = "relation.mlflow.charmed.io/endpoint"
	// LabelRemoteApplication names the application on the other side of the relation
	LabelRemoteApplication = "relation.mlflow.charmed.io/remote-application"
	// LabelRole tells remote data bags from local ones
	LabelRole = "relation.mlflow.charmed.io/role"

	// RoleRemote marks a Secret holding a remote application's data bag
	RoleRemote = "remote"
	// RoleLocal marks a Secret holding this application's data bag
	RoleLocal = "local"
)

// Endpoints of the MLflow server application
const (
	DatabaseEndpoint      = "relational-db"
	ObjectStorageEndpoint = "object-storage"
	IngressEndpoint       = "ingress"
	SecretsEndpoint       = "secrets"
	PodDefaultsEndpoint   = "pod-defaults"
	MetricsEndpoint       = "metrics-endpoint"
)

// Relation is one established relation on an endpoint
type Relation struct {
	// ID is the name of the Secret holding the remote data bag
	ID        string
	Endpoint  string
	RemoteApp string
	// Remote is the remote application's data bag
	Remote map[string]string
}

// Broker reads and writes the relation data of one application
type Broker struct {
	client    client.Client
	scheme    *runtime.Scheme
	owner     client.Object
	app       string
	namespace string
}

// NewBroker creates a Broker for the application represented by owner.
// Local data bags are owned by owner and garbage collected with it.
func NewBroker(c client.Client, scheme *runtime.Scheme, owner client.Object) *Broker {
	return &Broker{
		client:    c,
		scheme:    scheme,
		owner:     owner,
		app:       owner.GetName(),
		namespace: owner.GetNamespace(),
	}
}

// App is the application name
func (b *Broker) App() string {
	return b.app
}

// Namespace is the namespace relations are looked up in
func (b *Broker) Namespace() string {
	return b.namespace
}

// Relations returns the relations established on endpoint, ordered by remote application
func (b *Broker) Relations(ctx context.Context, endpoint string) ([]*Relation, error) {
	secrets := &corev1.SecretList{}
	err := b.client.List(ctx, secrets,
		client.InNamespace(b.namespace),
		client.MatchingLabels{
			LabelApplication: b.app,
			LabelEndpoint:    endpoint,
			LabelRole:        RoleRemote,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s relations: %w", endpoint, err)
	}

	relations := make([]*Relation, 0, len(secrets.Items))
	for i := range secrets.Items {
		secret := &secrets.Items[i]
		if secret.GetDeletionTimestamp() != nil {
			continue
		}
		remoteApp := secret.Labels[LabelRemoteApplication]
		if remoteApp == "" {
			remoteApp = secret.Name
		}
		relations = append(relations, &Relation{
			ID:        secret.Name,
			Endpoint:  endpoint,
			RemoteApp: remoteApp,
			Remote:    bagFromSecret(secret),
		})
	}
	sort.Slice(relations, func(i, j int) bool {
		if relations[i].RemoteApp == relations[j].RemoteApp {
			return relations[i].ID < relations[j].ID
		}
		return relations[i].RemoteApp < relations[j].RemoteApp
	})
	return relations, nil
}

// LocalBagName is the name of the Secret holding this application's data bag for rel
func (b *Broker) LocalBagName(rel *Relation) string {
	return fmt.Sprintf("%s-%s-%s", b.app, rel.Endpoint, rel.RemoteApp)
}

// Publish merges data into this application's data bag for rel
func (b *Broker) Publish(ctx context.Context, rel *Relation, data map[string]string) error {
	log := logf.FromContext(ctx)

	secret := &corev1.Secret{}
	secret.Name = b.LocalBagName(rel)
	secret.Namespace = b.namespace

	op, err := controllerutil.CreateOrUpdate(ctx, b.client, secret, func() error {
		if secret.Labels == nil {
			secret.Labels = map[string]string{}
		}
		secret.Labels[LabelApplication] = b.app
		secret.Labels[LabelEndpoint] = rel.Endpoint
		secret.Labels[LabelRemoteApplication] = rel.RemoteApp
		secret.Labels[LabelRole] = RoleLocal

		if secret.Data == nil {
			secret.Data = map[string][]byte{}
		}
		for k, v := range data {
			secret.Data[k] = []byte(v)
		}
		return controllerutil.SetControllerReference(b.owner, secret, b.scheme)
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s relation data for %s: %w", rel.Endpoint, rel.RemoteApp, err)
	}

	if op != controllerutil.OperationResultNone {
		log.V(1).Info("Published relation data", "endpoint", rel.Endpoint, "remoteApp", rel.RemoteApp, "operation", op)
	}
	return nil
}

// Local returns this application's data bag for rel, empty if nothing was published yet
func (b *Broker) Local(ctx context.Context, rel *Relation) (map[string]string, error) {
	secret := &corev1.Secret{}
	err := b.client.Get(ctx, client.ObjectKey{Name: b.LocalBagName(rel), Namespace: b.namespace}, secret)
	if err != nil {
		if client.IgnoreNotFound(err) == nil {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read local %s relation data: %w", rel.Endpoint, err)
	}
	return bagFromSecret(secret), nil
}

func bagFromSecret(secret *corev1.Secret) map[string]string {
	bag := make(map[string]string, len(secret.Data)+len(secret.StringData))
	for k, v := range secret.Data {
		bag[k] = string(v)
	}
	// StringData is only set on objects that have not been round-tripped through the API server
	for k, v := range secret.StringData {
		bag[k] = v
	}
	return bag
}
