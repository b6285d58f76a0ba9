package blob

import (
	"context"
	"fmt"
	"os"
)

// Open selects a payload Store implementation using environment variables.
//
//	IMAGINGCORE_RAW_DRIVER: fs|s3|memory (default fs)
//	IMAGINGCORE_RAW_FS_ROOT: directory root when driver=fs (default ./rawdata)
//	(S3 specific variables documented in the infra s3 package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("IMAGINGCORE_RAW_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("IMAGINGCORE_RAW_FS_ROOT")
		return NewFilesystem(root)
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown raw storage driver %s", driver)
	}
}
