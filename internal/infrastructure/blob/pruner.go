package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// snapshotPrefix matches the files SaveImage writes; the pruner never
// touches anything else in the directory.
const snapshotPrefix = "fall_image_"

// Pruner sweeps expired snapshots out of the uploads directory on a fixed
// interval so an unattended deployment does not fill its disk.
type Pruner struct {
	dir       string
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *zap.SugaredLogger
}

func NewPruner(dir string, retention, interval time.Duration, logger *zap.SugaredLogger) *Pruner {
	return &Pruner{
		dir:       dir,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		logger:    logger,
	}
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (p *Pruner) Run(ctx context.Context) {
	if p.retention <= 0 {
		return
	}

	p.sweepAndLog()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweepAndLog()
		}
	}
}

func (p *Pruner) sweepAndLog() {
	removed, err := p.Sweep()
	if err != nil {
		p.logger.Errorw("snapshot sweep failed", "error", err)
		return
	}
	if removed > 0 {
		p.logger.Infow("expired snapshots removed", "count", removed)
	}
}

// Sweep removes snapshots older than the retention window and reports how
// many it deleted. Files it cannot stat or remove are skipped and logged.
func (p *Pruner) Sweep() (int, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return 0, err
	}

	cutoff := p.now().Add(-p.retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), snapshotPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			p.logger.Warnw("failed to stat snapshot", "name", entry.Name(), "error", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(p.dir, entry.Name())); err != nil {
			p.logger.Warnw("failed to remove snapshot", "name", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
