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

// Leadership tells whether this operator replica is the leader.
// Only the leader changes the workload and the application status.
type Leadership interface {
	IsLeader() bool
}

// ElectedLeadership follows a manager's leader election
type ElectedLeadership struct {
	elected <-chan struct{}
}

// NewElectedLeadership wraps the channel returned by the manager's Elected()
func NewElectedLeadership(elected <-chan struct{}) *ElectedLeadership {
	return &ElectedLeadership{elected: elected}
}

// IsLeader reports whether the election was won
func (l *ElectedLeadership) IsLeader() bool {
	select {
	case <-l.elected:
		return true
	default:
		return false
	}
}

// StaticLeadership is a fixed answer, for single-replica deployments and tests
type StaticLeadership bool

// IsLeader returns the fixed answer
func (l StaticLeadership) IsLeader() bool {
	return bool(l)
}
