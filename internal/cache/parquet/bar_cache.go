// Package parquet persists aggregated OHLCV bars as local Parquet files,
// one file per outcome token.
package parquet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

// maxFileStem bounds file name length; CLOB token IDs run to 77+ digits.
const maxFileStem = 64

// barRow is the on-disk schema for one OHLCV bar.
type barRow struct {
	Timestamp int64   `parquet:"name=timestamp, type=INT64"`
	Open      float64 `parquet:"name=open, type=DOUBLE"`
	High      float64 `parquet:"name=high, type=DOUBLE"`
	Low       float64 `parquet:"name=low, type=DOUBLE"`
	Close     float64 `parquet:"name=close, type=DOUBLE"`
	Volume    float64 `parquet:"name=volume, type=DOUBLE"`
}

// BarCache implements domain.BarCache on top of a local directory of
// Parquet files. Writes replace the whole file for a token; bar sets are
// small enough that rewriting beats merge bookkeeping.
type BarCache struct {
	dir string
	mu  sync.Mutex
}

var _ domain.BarCache = (*BarCache)(nil)

// NewBarCache creates the cache directory if needed and returns the cache.
func NewBarCache(dir string) (*BarCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("parquet: create cache dir: %w", err)
	}
	return &BarCache{dir: dir}, nil
}

// SaveBars writes all bars for the token, replacing any existing file.
func (c *BarCache) SaveBars(tokenID string, bars []domain.PriceBar) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.path(tokenID)
	tmp := path + ".tmp"

	fw, err := local.NewLocalFileWriter(tmp)
	if err != nil {
		return fmt.Errorf("parquet: open %s: %w", tmp, err)
	}

	pw, err := writer.NewParquetWriter(fw, new(barRow), 1)
	if err != nil {
		fw.Close()
		return fmt.Errorf("parquet: create writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, bar := range bars {
		row := barRow{
			Timestamp: bar.Timestamp,
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    bar.Volume,
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			fw.Close()
			os.Remove(tmp)
			return fmt.Errorf("parquet: write bar: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		os.Remove(tmp)
		return fmt.Errorf("parquet: finalize: %w", err)
	}
	if err := fw.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("parquet: close: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("parquet: replace %s: %w", path, err)
	}
	return nil
}

// LoadBars reads all bars for the token. Missing files return
// domain.ErrNotFound.
func (c *BarCache) LoadBars(tokenID string) ([]domain.PriceBar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.path(tokenID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("parquet: %w: token=%s", domain.ErrNotFound, tokenID)
		}
		return nil, fmt.Errorf("parquet: stat %s: %w", path, err)
	}

	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("parquet: open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(barRow), 1)
	if err != nil {
		return nil, fmt.Errorf("parquet: create reader: %w", err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	rows := make([]barRow, num)
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("parquet: read bars: %w", err)
	}

	bars := make([]domain.PriceBar, len(rows))
	for i, row := range rows {
		bars[i] = domain.PriceBar{
			Timestamp: row.Timestamp,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
		}
	}
	return bars, nil
}

// HasBars reports whether cached bars exist for the token.
func (c *BarCache) HasBars(tokenID string) bool {
	_, err := os.Stat(c.path(tokenID))
	return err == nil
}

// DeleteBars removes the cached file for the token, if any.
func (c *BarCache) DeleteBars(tokenID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(c.path(tokenID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("parquet: delete bars for %s: %w", tokenID, err)
	}
	return nil
}

// Path returns the file path bars for the token are stored at, whether or
// not the file exists.
func (c *BarCache) Path(tokenID string) string {
	return c.path(tokenID)
}

func (c *BarCache) path(tokenID string) string {
	return filepath.Join(c.dir, sanitizeStem(tokenID)+".parquet")
}

// sanitizeStem maps a token ID onto a safe, bounded file name stem.
func sanitizeStem(tokenID string) string {
	var b strings.Builder
	for _, r := range tokenID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	stem := b.String()
	if stem == "" {
		stem = "token"
	}
	if len(stem) > maxFileStem {
		stem = stem[:maxFileStem]
	}
	return stem
}
