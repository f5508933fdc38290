package remote

import (
	"context"
	"fmt"

	"gdsync/internal/config"
	"gdsync/internal/gdsync"
)

// NewRemoteFromConfig creates a Remote implementation based on the remote
// config type.
func NewRemoteFromConfig(ctx context.Context, cfg config.RemoteConfig) (gdsync.Remote, error) {
	switch cfg.Type {
	case "drive":
		if cfg.DriveCredentialsPath == "" {
			return nil, fmt.Errorf("drive remote requires drive_credentials_path to be set")
		}
		return NewDriveRemoteFromCredentials(ctx, cfg.DriveCredentialsPath)
	case "s3":
		return NewS3RemoteFromOptions(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem remote requires fs_root to be set")
		}
		return NewFilesystemRemote(cfg.FSRoot)
	case "memory":
		return NewMemoryRemote(), nil
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}
