// Package blob selects and wraps durable blob store implementations for the
// upload stage.
package blob

import (
	"context"
	"fmt"

	"pdtcore/internal/blob/core"
	"pdtcore/internal/blob/fs"
	"pdtcore/internal/blob/memory"
	"pdtcore/internal/blob/s3"
)

// Options selects and configures a blob store driver.
type Options struct {
	Driver core.Driver
	FSRoot string    // driver=fs
	S3     s3.Config // driver=s3
}

// Open constructs the configured store. An empty driver defaults to fs.
func Open(ctx context.Context, opts Options) (core.Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = core.DriverFilesystem
	}
	switch driver {
	case core.DriverFilesystem:
		return fs.New(opts.FSRoot)
	case core.DriverS3:
		return s3.New(ctx, opts.S3)
	case core.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
