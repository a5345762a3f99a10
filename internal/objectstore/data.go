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

package objectstore

import (
	"fmt"
	"sort"
)

// Data is the object-storage relation payload
type Data struct {
	AccessKey string
	SecretKey string
	Service   string
	Namespace string
	Port      int
	Secure    bool
}

// Host is the service name, qualified with its namespace when one was sent
func (d Data) Host() string {
	if d.Namespace == "" {
		return d.Service
	}
	return d.Service + "." + d.Namespace
}

// Endpoint is the in-cluster URL of the store
func (d Data) Endpoint() string {
	return fmt.Sprintf("http://%s:%d", d.Host(), d.Port)
}

// Credentials returns what a BucketClient needs to reach the store
func (d Data) Credentials() Credentials {
	return Credentials{
		AccessKey: d.AccessKey,
		SecretKey: d.SecretKey,
		Endpoint:  d.Endpoint(),
	}
}

// FirstFromRelation picks the data of the first remote application, ordered by
// name, out of validated object-storage relation data. ok is false when no
// application has sent data.
func FirstFromRelation(byApp map[string]map[string]any) (Data, bool, error) {
	if len(byApp) == 0 {
		return Data{}, false, nil
	}
	apps := make([]string, 0, len(byApp))
	for app := range byApp {
		apps = append(apps, app)
	}
	sort.Strings(apps)

	data, err := FromMap(byApp[apps[0]])
	if err != nil {
		return Data{}, false, err
	}
	return data, true, nil
}

// FromMap converts one application's validated relation data
func FromMap(m map[string]any) (Data, error) {
	var d Data
	var err error

	if d.AccessKey, err = stringField(m, "access-key"); err != nil {
		return Data{}, err
	}
	if d.SecretKey, err = stringField(m, "secret-key"); err != nil {
		return Data{}, err
	}
	if d.Service, err = stringField(m, "service"); err != nil {
		return Data{}, err
	}
	if ns, ok := m["namespace"]; ok {
		if d.Namespace, ok = ns.(string); !ok {
			return Data{}, fmt.Errorf("missing or invalid namespace")
		}
	}

	switch port := m["port"].(type) {
	case int:
		d.Port = port
	case int64:
		d.Port = int(port)
	default:
		return Data{}, fmt.Errorf("missing or invalid port")
	}

	if secure, ok := m["secure"].(bool); ok {
		d.Secure = secure
	}
	return d, nil
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key].(string)
	if !ok {
		return "", fmt.Errorf("missing or invalid %s", key)
	}
	return v, nil
}
