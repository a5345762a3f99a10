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

// Package status carries the externally visible outcome of a stopped
// reconciliation pass inside an ordinary Go error.
package status

import (
	"errors"
	"fmt"

	mlflowv1 "github.com/canonical/mlflow-operator/api/v1"
)

// Error stops a reconciliation pass and reports Phase with its message.
type Error struct {
	Phase   mlflowv1.Phase
	Message string
	// Err is the underlying failure, if any
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Waiting reports a dependency that is not ready yet.
func Waiting(format string, args ...any) *Error {
	return &Error{Phase: mlflowv1.PhaseWaiting, Message: fmt.Sprintf(format, args...)}
}

// Blocked reports a misconfiguration that needs operator intervention.
func Blocked(format string, args ...any) *Error {
	return &Error{Phase: mlflowv1.PhaseBlocked, Message: fmt.Sprintf(format, args...)}
}

// Maintenance reports work in progress on the workload.
func Maintenance(format string, args ...any) *Error {
	return &Error{Phase: mlflowv1.PhaseMaintenance, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches the underlying error to a status error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// FromError returns the status error in err's chain.
func FromError(err error) (*Error, bool) {
	var statusErr *Error
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}
