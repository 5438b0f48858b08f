// Package photo re-exports the photo storage abstractions and selects a
// backend driver for receipt photo uploads.
package photo

import (
	"context"
	"fmt"
	"os"

	"clamflow/internal/photo/core"
	fsstore "clamflow/internal/infra/photo/fs"
	memorystore "clamflow/internal/infra/photo/memory"
	s3store "clamflow/internal/infra/photo/s3"
)

type (
	// Driver identifies a photo backend driver.
	Driver = core.Driver
	// PutOptions configures a photo write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored photo metadata.
	Info = core.Info
	// Store is the interface for photo storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported indicates an operation isn't supported by a driver.
var ErrUnsupported = core.ErrUnsupported

// S3Config holds explicit S3 construction parameters.
type S3Config = s3store.Config

// Open selects a photo.Store implementation using environment variables.
//
//	CLAMFLOW_PHOTO_DRIVER: fs|s3|memory (default fs)
//	CLAMFLOW_PHOTO_FS_ROOT: directory root when driver=fs (default ./photodata)
//	(S3 specific variables documented in the s3 driver)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("CLAMFLOW_PHOTO_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("CLAMFLOW_PHOTO_FS_ROOT")
		return NewFilesystem(root)
	case DriverS3:
		return s3store.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown photo driver %s", driver)
	}
}

// NewFilesystem constructs a filesystem-backed photo.Store rooted at the provided path.
func NewFilesystem(root string) (Store, error) {
	return fsstore.New(root)
}

// NewMemory returns an in-memory photo.Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewS3 constructs an S3-backed photo.Store from the provided configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return s3store.New(ctx, cfg)
}
