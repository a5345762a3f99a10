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
	"crypto/tls"
	"flag"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/client-go/discovery"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/canonical/mlflow-operator/internal/config"
	"github.com/canonical/mlflow-operator/internal/controller"
	"github.com/canonical/mlflow-operator/internal/database"
)

type managerOptions struct {
	metricsAddr          string
	probeAddr            string
	enableLeaderElection bool
	secureMetrics        bool
	enableHTTP2          bool
	chartPath            string
	zap                  zap.Options
}

func (o *managerOptions) flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("manager", pflag.ContinueOnError)
	fs.StringVar(&o.metricsAddr, "metrics-bind-address", ":8080", "The address the metrics endpoint binds to. "+
		"Use :8443 for HTTPS or 0 to disable the metrics service.")
	fs.StringVar(&o.probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	fs.BoolVar(&o.enableLeaderElection, "leader-elect", false,
		"Enable leader election for controller manager. "+
			"Only the elected replica changes the workload; every replica reports its unit status.")
	fs.BoolVar(&o.secureMetrics, "metrics-secure", false,
		"If set, the metrics endpoint is served securely via HTTPS.")
	fs.BoolVar(&o.enableHTTP2, "enable-http2", false,
		"If set, HTTP/2 will be enabled for the metrics server")
	fs.StringVar(&o.chartPath, "chart-path", "charts/mlflow-server", "Path to the MLflow server Helm chart")

	o.zap = zap.Options{Development: true}
	goflags := flag.NewFlagSet("zap", flag.ContinueOnError)
	o.zap.BindFlags(goflags)
	fs.AddGoFlagSet(goflags)
	return fs
}

func makeManagerCommand() *cobra.Command {
	o := &managerOptions{}
	cmd := &cobra.Command{
		Use:   "manager",
		Short: "Runs the MLflowServer controller manager.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManager(o)
		},
	}
	cmd.Flags().AddFlagSet(o.flags())
	return cmd
}

func runManager(o *managerOptions) error {
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&o.zap)))
	setupLog := ctrl.Log.WithName("setup")

	var tlsOpts []func(*tls.Config)
	// HTTP/2 is disabled by default due to its vulnerabilities (HTTP/2 Stream
	// Cancellation and Rapid Reset CVEs).
	if !o.enableHTTP2 {
		tlsOpts = append(tlsOpts, func(c *tls.Config) {
			setupLog.Info("disabling http/2")
			c.NextProtos = []string{"http/1.1"}
		})
	}

	restConfig := ctrl.GetConfigOrDie()
	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{
		Scheme: scheme,
		Metrics: metricsserver.Options{
			BindAddress:   o.metricsAddr,
			SecureServing: o.secureMetrics,
			TLSOpts:       tlsOpts,
		},
		HealthProbeBindAddress: o.probeAddr,
		LeaderElection:         o.enableLeaderElection,
		LeaderElectionID:       "mlflow-operator.mlflow.charmed.io",
	})
	if err != nil {
		return fmt.Errorf("unable to start manager: %w", err)
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("unable to create discovery client: %w", err)
	}
	consoleLinkAvailable, err := controller.IsConsoleLinkAvailable(discoveryClient)
	if err != nil {
		return fmt.Errorf("unable to check for ConsoleLink: %w", err)
	}
	httpRouteAvailable, err := controller.IsHTTPRouteAvailable(discoveryClient)
	if err != nil {
		return fmt.Errorf("unable to check for HTTPRoute: %w", err)
	}

	cfg := config.GetConfig()
	reconciler := &controller.MLflowServerReconciler{
		Client:               mgr.GetClient(),
		Scheme:               mgr.GetScheme(),
		ChartPath:            o.chartPath,
		Leader:               controller.NewElectedLeadership(mgr.Elected()),
		UnitName:             cfg.UnitName,
		DefaultImage:         cfg.MLflowImage,
		ConsoleLinkAvailable: consoleLinkAvailable,
		HTTPRouteAvailable:   httpRouteAvailable,
	}
	if cfg.DatabaseProbe {
		if err := database.UseLogger(ctrl.Log.WithName("mysql")); err != nil {
			return fmt.Errorf("unable to set mysql driver logger: %w", err)
		}
		reconciler.DatabaseProber = &database.MySQLProber{Timeout: cfg.DatabaseProbeTimeout}
	}
	if err := reconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to create controller MLflowServer: %w", err)
	}
	// +kubebuilder:scaffold:builder

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up ready check: %w", err)
	}

	setupLog.Info("starting manager", "unit", cfg.UnitName, "leaderElection", o.enableLeaderElection)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		return fmt.Errorf("problem running manager: %w", err)
	}
	return nil
}
