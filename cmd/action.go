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

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/yaml"

	"github.com/canonical/mlflow-operator/internal/action"
)

type actionFlags struct {
	namespace string
	app       string
	timeout   time.Duration
}

func makeGetMinioPasswordCommand() *cobra.Command {
	flags := &actionFlags{}
	cmd := &cobra.Command{
		Use:   "get-minio-password",
		Short: "Prints the object storage admin password of an MLflow server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
			defer cancel()

			c, err := client.New(ctrl.GetConfigOrDie(), client.Options{Scheme: scheme})
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			result, err := action.GetMinioPassword(ctx, c, scheme, flags.namespace, flags.app)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(result)
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&flags.namespace, "namespace", "n", "kubeflow", "namespace of the MLflowServer")
	cmd.Flags().StringVar(&flags.app, "app", "mlflow-server", "name of the MLflowServer")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 30*time.Second, "time allowed for the action")
	return cmd
}
