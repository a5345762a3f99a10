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
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/canonical/mlflow-operator/internal/status"
)

const (
	// defaultRegion is sent with every request; S3-compatible stores such as MinIO ignore it
	defaultRegion = "us-east-1"

	minBucketNameLength = 3
	maxBucketNameLength = 63
)

var (
	bucketLabelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	ipAddressPattern   = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)
)

// reservedBucketPrefix marks punycode names, which S3 refuses
const reservedBucketPrefix = "xn--"

// ValidateBucketName reports whether name is a valid S3 bucket name.
// A valid name is 3 to 63 characters of dot-separated labels, each made of
// lowercase letters, digits and hyphens that starts and ends with a letter or
// digit. It is not formatted like an IPv4 address and does not start with xn--.
func ValidateBucketName(name string) bool {
	if len(name) < minBucketNameLength || len(name) > maxBucketNameLength {
		return false
	}
	if ipAddressPattern.MatchString(name) || strings.HasPrefix(name, reservedBucketPrefix) {
		return false
	}
	for _, label := range strings.Split(name, ".") {
		if !bucketLabelPattern.MatchString(label) {
			return false
		}
	}
	return true
}

// Credentials addresses an S3-compatible object store
type Credentials struct {
	AccessKey string
	SecretKey string
	// Endpoint is the full URL of the store, e.g. http://minio.kubeflow:9000
	Endpoint string
}

// BucketClient checks for and creates buckets
type BucketClient interface {
	// BucketAccessible reports whether the bucket exists and the credentials can reach it
	BucketAccessible(ctx context.Context, name string) bool
	// CreateBucket creates the bucket
	CreateBucket(ctx context.Context, name string) error
}

// ClientFactory builds a BucketClient for the given credentials
type ClientFactory func(creds Credentials) BucketClient

// BucketWrapper is a BucketClient backed by the AWS S3 SDK
type BucketWrapper struct {
	client *s3.Client
}

var _ BucketClient = &BucketWrapper{}

// NewBucketWrapper creates a BucketWrapper using path-style addressing against creds.Endpoint
func NewBucketWrapper(creds Credentials) BucketClient {
	client := s3.New(s3.Options{
		Region:       defaultRegion,
		Credentials:  credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, ""),
		BaseEndpoint: aws.String(creds.Endpoint),
		UsePathStyle: true,
	})
	return &BucketWrapper{client: client}
}

// BucketAccessible issues a HeadBucket request. Any error counts as not accessible.
func (b *BucketWrapper) BucketAccessible(ctx context.Context, name string) bool {
	log := logf.FromContext(ctx)

	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)})
	if err == nil {
		return true
	}

	var notFound *types.NotFound
	var apiErr smithy.APIError
	switch {
	case errors.As(err, &notFound):
		log.V(1).Info("Bucket does not exist", "bucket", name)
	case errors.As(err, &apiErr):
		log.Info("Bucket not accessible", "bucket", name, "code", apiErr.ErrorCode(), "message", apiErr.ErrorMessage())
	default:
		log.Error(err, "Failed to check bucket", "bucket", name)
	}
	return false
}

// CreateBucket issues a CreateBucket request
func (b *BucketWrapper) CreateBucket(ctx context.Context, name string) error {
	if _, err := b.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(name)}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	return nil
}

// EnsureDefaultBucket validates the default artifact root bucket name and makes sure
// the bucket is reachable, creating it when createIfMissing allows. It returns true
// when a bucket was created. Every anticipated failure is a Blocked status error.
func EnsureDefaultBucket(ctx context.Context, client BucketClient, name string, createIfMissing bool) (bool, error) {
	log := logf.FromContext(ctx)

	if !ValidateBucketName(name) {
		return false, status.Blocked(
			"Invalid value for spec.defaultArtifactRoot '%s' - value must be a valid S3 bucket name", name)
	}

	if client.BucketAccessible(ctx, name) {
		return false, nil
	}

	if !createIfMissing {
		return false, status.Blocked("Error with default S3 artifact store - bucket not accessible or does not " +
			"exist. Set spec.createDefaultArtifactRootIfMissing=true to automatically " +
			"create a missing default bucket")
	}

	log.Info("Creating default artifact root bucket", "bucket", name)
	if err := client.CreateBucket(ctx, name); err != nil {
		return false, status.Blocked("Error with default S3 artifact store - bucket not accessible or "+
			"cannot be created.  Caught error: '%v'", err).Wrap(err)
	}
	return true, nil
}
