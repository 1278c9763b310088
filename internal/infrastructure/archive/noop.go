package archive

import (
	"context"

	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/infrastructure/config"
)

// NoopArchive discards records. It is used when storage is disabled.
type NoopArchive struct{}

func (NoopArchive) Store(ctx context.Context, rec delivery.Record) error {
	return nil
}

// New returns the archive selected by cfg
func New(ctx context.Context, cfg *config.StorageConfig, opts ...S3ArchiveOption) (delivery.Archive, error) {
	if cfg == nil || !cfg.Enabled {
		return NoopArchive{}, nil
	}
	return NewS3Archive(ctx, cfg, opts...)
}

var _ delivery.Archive = NoopArchive{}
