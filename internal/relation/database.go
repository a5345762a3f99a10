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
)

// DatabaseRequires is the requirer side of a data-platform database relation.
// It asks the provider for a database by name and reads back the credentials.
type DatabaseRequires struct {
	broker   *Broker
	endpoint string
	database string
}

// NewDatabaseRequires requests database on endpoint
func NewDatabaseRequires(b *Broker, endpoint, database string) *DatabaseRequires {
	return &DatabaseRequires{broker: b, endpoint: endpoint, database: database}
}

// FetchRelationData publishes the database request and returns the remote data bag
// of every relation on the endpoint, keyed by relation ID. It returns a nil map when
// the endpoint has no relations.
func (d *DatabaseRequires) FetchRelationData(ctx context.Context) (map[string]map[string]string, error) {
	relations, err := d.broker.Relations(ctx, d.endpoint)
	if err != nil {
		return nil, err
	}
	if len(relations) == 0 {
		return nil, nil
	}

	data := make(map[string]map[string]string, len(relations))
	for _, rel := range relations {
		if err := d.broker.Publish(ctx, rel, map[string]string{"database": d.database}); err != nil {
			return nil, err
		}
		data[rel.ID] = rel.Remote
	}
	return data, nil
}
