package photos

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/benasque-conf/participants/config"
	"github.com/benasque-conf/participants/pkg/storage"
)

// S3KeyPrefix is the key prefix photos are written under in the bucket.
const S3KeyPrefix = "photos"

// Open builds the store selected by cfg.Backend. The local store's references start with the
// upload directory's base name, which is also the path the server serves it under.
func Open(ctx context.Context, cfg config.PhotoConfig, aws config.AWSConfig, logger *zap.Logger) (Store, error) {
	if cfg.Backend == "s3" {
		client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          aws.Region,
			AccessKeyID:     aws.AccessKeyID,
			SecretAccessKey: aws.SecretAccessKey,
			Bucket:          aws.PhotosBucket,
		}, logger)
		if err != nil {
			return nil, err
		}
		return NewS3Store(client, S3KeyPrefix), nil
	}
	local, err := NewLocalStore(cfg.UploadDir, filepath.Base(filepath.Clean(cfg.UploadDir)))
	if err != nil {
		return nil, err
	}
	return local, nil
}
