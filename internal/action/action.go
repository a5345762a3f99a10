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

// Package action implements the one-shot operations an administrator runs
// against an MLflowServer.
package action

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	mlflowv1 "github.com/canonical/mlflow-operator/api/v1"
	"github.com/canonical/mlflow-operator/internal/objectstore"
	"github.com/canonical/mlflow-operator/internal/relation"
)

const (
	// AdminPasswordKey is the result key of GetMinioPassword
	AdminPasswordKey = "admin-password"

	passwordChangedMessage = "Admin password has been changed by an administrator"
)

// ErrObjectStorageUnreachable is returned while the object-storage relation has no usable data
var ErrObjectStorageUnreachable = errors.New("Object storage is not reachable yet. Please try again in a few minutes")

// GetMinioPassword returns the object storage admin password of the named server.
// When the related access key is no longer the admin user the password is not
// disclosed and a notice is returned in its place.
func GetMinioPassword(ctx context.Context, c client.Client, scheme *runtime.Scheme, namespace, app string) (map[string]string, error) {
	log := logf.FromContext(ctx)

	server := &mlflowv1.MLflowServer{}
	if err := c.Get(ctx, client.ObjectKey{Name: app, Namespace: namespace}, server); err != nil {
		return nil, fmt.Errorf("failed to get MLflowServer %s/%s: %w", namespace, app, err)
	}

	broker := relation.NewBroker(c, scheme, server)
	interfaces, err := relation.ReadInterfaces(ctx, broker, map[string]relation.InterfaceSpec{
		relation.ObjectStorageEndpoint: relation.Interfaces[relation.ObjectStorageEndpoint],
	})
	if err != nil {
		log.V(1).Info("Relation interfaces unavailable", "error", err.Error())
		return nil, ErrObjectStorageUnreachable
	}

	iface := interfaces[relation.ObjectStorageEndpoint]
	if iface == nil {
		return nil, ErrObjectStorageUnreachable
	}
	byApp, err := iface.Data()
	if err != nil {
		log.V(1).Info("Object storage data unreadable", "error", err.Error())
		return nil, ErrObjectStorageUnreachable
	}
	store, ok, err := objectstore.FirstFromRelation(byApp)
	if err != nil || !ok {
		return nil, ErrObjectStorageUnreachable
	}

	if store.AccessKey != server.Spec.GetAdminUser() {
		return map[string]string{AdminPasswordKey: passwordChangedMessage}, nil
	}
	return map[string]string{AdminPasswordKey: store.SecretKey}, nil
}
