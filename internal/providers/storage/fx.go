package storage

import (
	"context"

	"github.com/smallbiznis/academy/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.storage",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) (BlobStore, error) {
	if cfg.Storage.Bucket == "" {
		log.Named("providers.storage").Warn("S3_BUCKET not set, certificates are kept in memory")
		return NewMemory(), nil
	}
	return NewS3(context.Background(), cfg.Storage)
}
