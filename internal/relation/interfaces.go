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
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/juju/schema"
	"gopkg.in/yaml.v3"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	// SupportedVersionsKey holds the YAML list of interface versions an application speaks
	SupportedVersionsKey = "_supported_versions"
	// DataKey holds the YAML payload of a versioned interface
	DataKey = "data"
)

// NoVersionsListedError is returned when a related application has not
// published the interface versions it supports yet.
type NoVersionsListedError struct {
	Endpoint  string
	RemoteApp string
}

func (e *NoVersionsListedError) Error() string {
	return fmt.Sprintf("%s: no versions listed by %s", e.Endpoint, e.RemoteApp)
}

// NoCompatibleVersionsError is returned when no interface version is supported by both sides.
type NoCompatibleVersionsError struct {
	Endpoint  string
	RemoteApp string
	Local     []string
	Remote    []string
}

func (e *NoCompatibleVersionsError) Error() string {
	return fmt.Sprintf("%s: no compatible versions with %s (local %s, remote %s)",
		e.Endpoint, e.RemoteApp, strings.Join(e.Local, ","), strings.Join(e.Remote, ","))
}

// InterfaceSpec describes a versioned interface: a checker for the data of each supported version
type InterfaceSpec map[string]schema.Checker

// Versions returns the supported versions, oldest first
func (s InterfaceSpec) Versions() []string {
	versions := make([]string, 0, len(s))
	for v := range s {
		versions = append(versions, v)
	}
	sortVersions(versions)
	return versions
}

// Interface is a negotiated versioned interface over every relation on one endpoint
type Interface struct {
	Endpoint  string
	Version   string
	relations []*Relation
	checker   schema.Checker
	broker    *Broker
}

// Relations are the relations the interface was negotiated over
func (i *Interface) Relations() []*Relation {
	return i.relations
}

// Data returns the validated data sent by each remote application, keyed by
// remote application. Applications that have not sent data are skipped.
func (i *Interface) Data() (map[string]map[string]any, error) {
	result := map[string]map[string]any{}
	for _, rel := range i.relations {
		raw := rel.Remote[DataKey]
		if strings.TrimSpace(raw) == "" {
			continue
		}
		var decoded map[string]any
		if err := yaml.Unmarshal([]byte(raw), &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode %s data from %s: %w", i.Endpoint, rel.RemoteApp, err)
		}
		coerced, err := i.checker.Coerce(decoded, []string{i.Endpoint})
		if err != nil {
			return nil, fmt.Errorf("invalid %s data from %s: %w", i.Endpoint, rel.RemoteApp, err)
		}
		result[rel.RemoteApp] = coerced.(map[string]any)
	}
	return result, nil
}

// Send validates data and publishes it to every relation on the endpoint
func (i *Interface) Send(ctx context.Context, data map[string]any) error {
	if _, err := i.checker.Coerce(data, []string{i.Endpoint}); err != nil {
		return fmt.Errorf("refusing to send invalid %s data: %w", i.Endpoint, err)
	}
	encoded, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s data: %w", i.Endpoint, err)
	}
	for _, rel := range i.relations {
		if err := i.broker.Publish(ctx, rel, map[string]string{DataKey: string(encoded)}); err != nil {
			return err
		}
	}
	return nil
}

// GetInterfaces negotiates a version for every endpoint in specs that has relations.
// Endpoints without relations map to nil. This application's supported versions are
// published on every relation before the remote versions are checked.
func GetInterfaces(ctx context.Context, b *Broker, specs map[string]InterfaceSpec) (map[string]*Interface, error) {
	return negotiate(ctx, b, specs, true)
}

// ReadInterfaces negotiates like GetInterfaces without writing to any local bag.
// The returned interfaces are only good for Data.
func ReadInterfaces(ctx context.Context, b *Broker, specs map[string]InterfaceSpec) (map[string]*Interface, error) {
	return negotiate(ctx, b, specs, false)
}

func negotiate(ctx context.Context, b *Broker, specs map[string]InterfaceSpec, publish bool) (map[string]*Interface, error) {
	log := logf.FromContext(ctx)

	endpoints := make([]string, 0, len(specs))
	for endpoint := range specs {
		endpoints = append(endpoints, endpoint)
	}
	sort.Strings(endpoints)

	interfaces := make(map[string]*Interface, len(specs))
	for _, endpoint := range endpoints {
		spec := specs[endpoint]
		relations, err := b.Relations(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		if len(relations) == 0 {
			interfaces[endpoint] = nil
			continue
		}

		local := spec.Versions()
		if publish {
			encodedLocal, err := yaml.Marshal(local)
			if err != nil {
				return nil, fmt.Errorf("failed to encode supported versions: %w", err)
			}
			for _, rel := range relations {
				if err := b.Publish(ctx, rel, map[string]string{SupportedVersionsKey: string(encodedLocal)}); err != nil {
					return nil, err
				}
			}
		}

		common := local
		for _, rel := range relations {
			raw, ok := rel.Remote[SupportedVersionsKey]
			if !ok || strings.TrimSpace(raw) == "" {
				return nil, &NoVersionsListedError{Endpoint: endpoint, RemoteApp: rel.RemoteApp}
			}
			var remote []string
			if err := yaml.Unmarshal([]byte(raw), &remote); err != nil || len(remote) == 0 {
				return nil, &NoVersionsListedError{Endpoint: endpoint, RemoteApp: rel.RemoteApp}
			}
			common = intersect(common, remote)
			if len(common) == 0 {
				return nil, &NoCompatibleVersionsError{
					Endpoint:  endpoint,
					RemoteApp: rel.RemoteApp,
					Local:     local,
					Remote:    remote,
				}
			}
		}

		version := common[len(common)-1]
		log.V(1).Info("Negotiated interface version", "endpoint", endpoint, "version", version, "relations", len(relations))
		interfaces[endpoint] = &Interface{
			Endpoint:  endpoint,
			Version:   version,
			relations: relations,
			checker:   spec[version],
			broker:    b,
		}
	}
	return interfaces, nil
}

func intersect(a, b []string) []string {
	seen := make(map[string]bool, len(b))
	for _, v := range b {
		seen[v] = true
	}
	var out []string
	for _, v := range a {
		if seen[v] {
			out = append(out, v)
		}
	}
	sortVersions(out)
	return out
}

// sortVersions orders "v1", "v2", ... numerically, falling back to lexical order
func sortVersions(versions []string) {
	sort.Slice(versions, func(i, j int) bool {
		vi, errI := strconv.Atoi(strings.TrimPrefix(versions[i], "v"))
		vj, errJ := strconv.Atoi(strings.TrimPrefix(versions[j], "v"))
		if errI == nil && errJ == nil {
			return vi < vj
		}
		return versions[i] < versions[j]
	})
}
