package scrape

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Dumper persists raw markup on parse failures so selector drift can be
// diagnosed offline. Every method is best-effort; a dump failure is a log
// line, never an error for the caller.
type Dumper struct {
	dir      string
	maxBytes int64
	enabled  bool
	logger   *zap.Logger
}

// NewDumper creates the dump directory when enabled. A directory error
// disables dumping rather than failing startup.
func NewDumper(dir string, maxBytes int64, enabled bool, logger *zap.Logger) *Dumper {
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	d := &Dumper{dir: dir, maxBytes: maxBytes, enabled: enabled, logger: logger}
	if enabled {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			logger.Warn("diagnostic dump dir unavailable, dumping disabled",
				zap.String("dir", dir), zap.Error(err))
			d.enabled = false
		}
	}
	return d
}

// Dump writes body to a timestamp-named file and returns its path, or ""
// when dumping is disabled or fails.
func (d *Dumper) Dump(body []byte, reason string) string {
	if !d.enabled || len(body) == 0 {
		return ""
	}
	if int64(len(body)) > d.maxBytes {
		body = body[:d.maxBytes]
	}
	name := fmt.Sprintf("worldboss-%s.html", time.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		d.logger.Warn("diagnostic dump failed", zap.String("path", path), zap.Error(err))
		return ""
	}
	d.logger.Info("raw markup dumped",
		zap.String("path", path),
		zap.Int("bytes", len(body)),
		zap.String("reason", reason),
	)
	return path
}
