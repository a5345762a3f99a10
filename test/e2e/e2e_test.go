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

package e2e

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/canonical/mlflow-operator/test/utils"
)

// namespace where the project is deployed in
const namespace = "kubeflow"

// metricsServiceName is the name of the metrics service of the project
const metricsServiceName = "mlflow-operator-controller-manager-metrics-service"

// serverName is the MLflowServer created by the tests
const serverName = "mlflow-server"

var _ = Describe("Manager", Ordered, func() {
	var controllerPodName string

	// Before running the tests, set up the environment by creating the namespace,
	// installing CRDs, and deploying the controller.
	BeforeAll(func() {
		By("creating manager namespace")
		cmd := exec.Command("kubectl", "create", "ns", namespace)
		_, err := utils.Run(cmd)
		Expect(err).NotTo(HaveOccurred(), "Failed to create namespace")

		By("installing CRDs")
		cmd = exec.Command("make", "install")
		_, err = utils.Run(cmd)
		Expect(err).NotTo(HaveOccurred(), "Failed to install CRDs")

		By("deploying the controller-manager")
		cmd = exec.Command("make", "deploy", fmt.Sprintf("IMG=%s", projectImage))
		_, err = utils.Run(cmd)
		Expect(err).NotTo(HaveOccurred(), "Failed to deploy the controller-manager")
	})

	// After all tests have been executed, clean up by undeploying the controller, uninstalling CRDs,
	// and deleting the namespace.
	AfterAll(func() {
		By("cleaning up the curl pod for metrics")
		cmd := exec.Command("kubectl", "delete", "pod", "curl-metrics", "-n", namespace, "--ignore-not-found=true")
		_, _ = utils.Run(cmd)

		By("cleaning up any MLflowServer resources")
		cmd = exec.Command("kubectl", "delete", "mlflowserver", "--all", "-n", namespace, "--ignore-not-found=true")
		_, _ = utils.Run(cmd)

		By("undeploying the controller-manager")
		cmd = exec.Command("make", "undeploy")
		_, _ = utils.Run(cmd)

		By("uninstalling CRDs")
		cmd = exec.Command("make", "uninstall")
		_, _ = utils.Run(cmd)

		By("removing manager namespace")
		cmd = exec.Command("kubectl", "delete", "ns", namespace)
		_, _ = utils.Run(cmd)
	})

	// After each test, check for failures and collect logs, events,
	// and pod descriptions for debugging.
	AfterEach(func() {
		specReport := CurrentSpecReport()
		if specReport.Failed() {
			By("Fetching controller manager pod logs")
			cmd := exec.Command("kubectl", "logs", controllerPodName, "-n", namespace)
			controllerLogs, err := utils.Run(cmd)
			if err == nil {
				_, _ = fmt.Fprintf(GinkgoWriter, "Controller logs:\n %s", controllerLogs)
			} else {
				_, _ = fmt.Fprintf(GinkgoWriter, "Failed to get Controller logs: %s", err)
			}

			By("Fetching Kubernetes events")
			cmd = exec.Command("kubectl", "get", "events", "-n", namespace, "--sort-by=.lastTimestamp")
			eventsOutput, err := utils.Run(cmd)
			if err == nil {
				_, _ = fmt.Fprintf(GinkgoWriter, "Kubernetes events:\n%s", eventsOutput)
			} else {
				_, _ = fmt.Fprintf(GinkgoWriter, "Failed to get Kubernetes events: %s", err)
			}

			By("Fetching MLflowServer status")
			cmd = exec.Command("kubectl", "get", "mlflowserver", "-n", namespace, "-o", "yaml")
			serverOutput, err := utils.Run(cmd)
			if err == nil {
				_, _ = fmt.Fprintf(GinkgoWriter, "MLflowServers:\n%s", serverOutput)
			}
		}
	})

	SetDefaultEventuallyTimeout(2 * time.Minute)
	SetDefaultEventuallyPollingInterval(time.Second)

	Context("Manager", func() {
		It("should run successfully", func() {
			By("validating that the controller-manager pod is running as expected")
			verifyControllerUp := func(g Gomega) {
				// Get the name of the controller-manager pod
				cmd := exec.Command("kubectl", "get",
					"pods", "-l", "control-plane=controller-manager",
					"-o", "go-template={{ range .items }}"+
						"{{ if not .metadata.deletionTimestamp }}"+
						"{{ .metadata.name }}"+
						"{{ \"\\n\" }}{{ end }}{{ end }}",
					"-n", namespace,
				)

				podOutput, err := utils.Run(cmd)
				g.Expect(err).NotTo(HaveOccurred(), "Failed to retrieve controller-manager pod information")
				podNames := utils.GetNonEmptyLines(podOutput)
				g.Expect(podNames).To(HaveLen(1), "expected 1 controller pod running")
				controllerPodName = podNames[0]
				g.Expect(controllerPodName).To(ContainSubstring("controller-manager"))

				// Validate the pod's status
				cmd = exec.Command("kubectl", "get",
					"pods", controllerPodName, "-o", "jsonpath={.status.phase}",
					"-n", namespace,
				)
				output, err := utils.Run(cmd)
				g.Expect(err).NotTo(HaveOccurred())
				g.Expect(output).To(Equal("Running"), "Incorrect controller-manager pod status")
			}
			Eventually(verifyControllerUp).Should(Succeed())
		})

		It("should reject MLflowServer names longer than 40 characters", func() {
			name := strings.Repeat("m", 41)
			manifest := fmt.Sprintf(`apiVersion: mlflow.charmed.io/v1
kind: MLflowServer
metadata:
  name: %s
  namespace: %s
spec: {}`, name, namespace)

			output, err := applyManifest("mlflowserver-invalid.yaml", manifest)
			Expect(err).To(HaveOccurred(), "Should fail to create an MLflowServer with a long name")
			Expect(output).To(ContainSubstring("MLflowServer name must be at most 40 characters"))
		})

		It("should wait for the mysql relation", func() {
			manifest := fmt.Sprintf(`apiVersion: mlflow.charmed.io/v1
kind: MLflowServer
metadata:
  name: %s
  namespace: %s
spec: {}`, serverName, namespace)

			_, err := applyManifest("mlflowserver.yaml", manifest)
			Expect(err).NotTo(HaveOccurred(), "Failed to create MLflowServer")

			By("verifying the defaults were applied")
			cmd := exec.Command("kubectl", "get", "mlflowserver", serverName, "-n", namespace,
				"-o", "jsonpath={.spec.port} {.spec.defaultArtifactRoot}")
			output, err := utils.Run(cmd)
			Expect(err).NotTo(HaveOccurred())
			Expect(output).To(Equal("5000 mlflow"))

			By("verifying the server reports it is waiting for its database")
			verifyWaiting := func(g Gomega) {
				cmd := exec.Command("kubectl", "get", "mlflowserver", serverName, "-n", namespace,
					"-o", "jsonpath={.status.phase}: {.status.message}")
				output, err := utils.Run(cmd)
				g.Expect(err).NotTo(HaveOccurred())
				g.Expect(output).To(Equal("Waiting: Waiting for mysql relation data"))
			}
			Eventually(verifyWaiting).Should(Succeed())
		})

		It("should fail the get-minio-password action without object storage", func() {
			cmd := exec.Command("kubectl", "exec", controllerPodName, "-n", namespace, "--",
				"/manager", "get-minio-password", "--namespace", namespace, "--app", serverName)
			output, err := utils.Run(cmd)
			Expect(err).To(HaveOccurred(), "The action should exit with a failure")
			Expect(output).To(ContainSubstring("Object storage is not reachable yet"))
		})

		It("should ensure the metrics endpoint is serving metrics", func() {
			By("validating that the metrics service is available")
			cmd := exec.Command("kubectl", "get", "service", metricsServiceName, "-n", namespace)
			_, err := utils.Run(cmd)
			Expect(err).NotTo(HaveOccurred(), "Metrics service should exist")

			By("verifying that the controller manager is serving the metrics server")
			verifyMetricsServerStarted := func(g Gomega) {
				cmd := exec.Command("kubectl", "logs", controllerPodName, "-n", namespace)
				output, err := utils.Run(cmd)
				g.Expect(err).NotTo(HaveOccurred())
				g.Expect(output).To(ContainSubstring("Serving metrics server"),
					"Metrics server not yet started")
			}
			Eventually(verifyMetricsServerStarted, 3*time.Minute, time.Second).Should(Succeed())

			By("creating the curl-metrics pod to access the metrics endpoint")
			cmd = exec.Command("kubectl", "run", "curl-metrics", "--restart=Never",
				"--namespace", namespace,
				"--image=curlimages/curl:latest",
				"--command", "--", "curl", "-v",
				fmt.Sprintf("http://%s.%s.svc.cluster.local:8080/metrics", metricsServiceName, namespace))
			_, err = utils.Run(cmd)
			Expect(err).NotTo(HaveOccurred(), "Failed to create curl-metrics pod")

			By("waiting for the curl-metrics pod to complete.")
			verifyCurlUp := func(g Gomega) {
				cmd := exec.Command("kubectl", "get", "pods", "curl-metrics",
					"-o", "jsonpath={.status.phase}",
					"-n", namespace)
				output, err := utils.Run(cmd)
				g.Expect(err).NotTo(HaveOccurred())
				g.Expect(output).To(Equal("Succeeded"), "curl pod in wrong status")
			}
			Eventually(verifyCurlUp, 5*time.Minute).Should(Succeed())

			By("getting the metrics by checking curl-metrics logs")
			verifyMetricsAvailable := func(g Gomega) {
				metricsOutput, err := getMetricsOutput()
				g.Expect(err).NotTo(HaveOccurred(), "Failed to retrieve logs from curl pod")
				g.Expect(metricsOutput).To(ContainSubstring("< HTTP/1.1 200 OK"))
				g.Expect(metricsOutput).To(ContainSubstring(
					fmt.Sprintf(`mlflow_server_reconcile_status{app="%s",phase="Waiting"} 1`, serverName)))
			}
			Eventually(verifyMetricsAvailable, 2*time.Minute).Should(Succeed())
		})
	})
})

// applyManifest writes manifest to a temporary file and applies it
func applyManifest(fileName, manifest string) (string, error) {
	path := filepath.Join(os.TempDir(), fileName)
	if err := os.WriteFile(path, []byte(manifest), os.FileMode(0o644)); err != nil {
		return "", err
	}
	defer func() {
		if removeErr := os.Remove(path); removeErr != nil {
			_, _ = fmt.Fprintf(GinkgoWriter, "failed to remove %s: %v\n", path, removeErr)
		}
	}()

	cmd := exec.Command("kubectl", "apply", "-f", path)
	return utils.Run(cmd)
}

// getMetricsOutput retrieves and returns the logs from the curl pod used to access the metrics endpoint.
func getMetricsOutput() (string, error) {
	By("getting the curl-metrics logs")
	cmd := exec.Command("kubectl", "logs", "curl-metrics", "-n", namespace)
	return utils.Run(cmd)
}
