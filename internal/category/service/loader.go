// Package service loads the category mapping and resolves marketplace categories
// against it.
package service

import (
	"bytes"
	"context"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
	"gopkg.in/yaml.v3"

	"github.com/storesync/storesync/internal/category/domain"
	"github.com/storesync/storesync/internal/errors"

	// Register the bucket drivers the mapping can be read from
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// Load opens the bucket at bucketURL and reads the mapping stored under key.
// Supports: file:///dir, s3://bucket, gs://bucket, mem://
func Load(ctx context.Context, bucketURL, key string) (*domain.Mapping, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMapping, "failed to open category bucket %q: %v", bucketURL, err)
	}
	defer bucket.Close() //nolint:errcheck

	return LoadFromBucket(ctx, bucket, key)
}

// LoadFromBucket reads and validates the mapping stored under key.
func LoadFromBucket(ctx context.Context, bucket *blob.Bucket, key string) (*domain.Mapping, error) {
	data, err := bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, errors.Wrapf(errors.ErrMapping, "category map %q not found", key)
		}
		return nil, errors.Wrapf(errors.ErrMapping, "failed to read category map %q: %v", key, err)
	}

	return Parse(data)
}

// Parse decodes a YAML (or JSON) mapping document and validates it. Unknown
// fields are rejected.
func Parse(data []byte) (*domain.Mapping, error) {
	var mapping domain.Mapping

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&mapping); err != nil {
		return nil, errors.Wrap(errors.ErrMapping, fmt.Sprintf("failed to parse category map: %v", err))
	}

	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	return &mapping, nil
}
