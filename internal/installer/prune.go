package installer

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/GriffinCanCode/apcore/internal/shared/id"
	"go.uber.org/zap"
)

// PruneStaging removes staging directories left behind by failed installs
// that are older than olderThan. Only names produced by the installer are
// considered. It returns the removed paths.
func (in *Installer) PruneStaging(olderThan time.Duration) ([]string, error) {
	entries, err := os.ReadDir(in.cfg.StagingRoot)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cutoff := in.now().Add(-olderThan)
	var removed []string
	for _, e := range entries {
		if !e.IsDir() || !id.IsStagingID(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		p := filepath.Join(in.cfg.StagingRoot, e.Name())
		if err := os.RemoveAll(p); err != nil {
			in.logger.Warn("Failed to prune staging directory", zap.String("path", p), zap.Error(err))
			continue
		}
		removed = append(removed, p)
	}
	if len(removed) > 0 {
		in.logger.Info("Pruned staging directories", zap.Int("count", len(removed)))
	}
	return removed, nil
}
