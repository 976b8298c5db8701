package s3blob

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

// BarFileSource exposes the local Parquet file backing a token's cached
// bars. The local bar cache satisfies this.
type BarFileSource interface {
	HasBars(tokenID string) bool
	Path(tokenID string) string
}

// BarArchiver implements domain.Archiver by uploading locally cached bar
// files to long-term object storage under date-partitioned keys.
//
// Deletion of the local file is intentionally NOT performed here; pruning
// the cache is a separate, explicit step after the upload is verified.
type BarArchiver struct {
	writer domain.BlobWriter
	source BarFileSource
	now    func() time.Time
}

var _ domain.Archiver = (*BarArchiver)(nil)

// NewBarArchiver creates a BarArchiver that reads local bar files from
// source and uploads them via writer.
func NewBarArchiver(writer domain.BlobWriter, source BarFileSource) *BarArchiver {
	return &BarArchiver{
		writer: writer,
		source: source,
		now:    time.Now,
	}
}

// ArchiveBars uploads the cached bar file for the token and returns the
// object key it was stored under. Tokens with no cached bars return
// domain.ErrNotFound.
func (a *BarArchiver) ArchiveBars(ctx context.Context, tokenID string) (string, error) {
	if !a.source.HasBars(tokenID) {
		return "", fmt.Errorf("s3blob: archive bars: %w: token=%s", domain.ErrNotFound, tokenID)
	}

	f, err := os.Open(a.source.Path(tokenID))
	if err != nil {
		return "", fmt.Errorf("s3blob: archive bars open %s: %w", tokenID, err)
	}
	defer f.Close()

	key := archiveKey(tokenID, a.now())
	if err := a.writer.Put(ctx, key, f, "application/vnd.apache.parquet"); err != nil {
		return "", fmt.Errorf("s3blob: archive bars upload %s: %w", tokenID, err)
	}
	return key, nil
}

// archiveKey builds a date-partitioned object key with a unique run ID so
// repeated archives of the same token never collide:
//
//	archive/bars/2026/08/27/<tokenID>/<uuid>.parquet
func archiveKey(tokenID string, t time.Time) string {
	return fmt.Sprintf("archive/bars/%s/%s/%s.parquet",
		t.UTC().Format("2006/01/02"), tokenID, uuid.NewString())
}
