// Package install seeds the user's workflow directory with the built-in
// workflow definitions as editable YAML files.
package install

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/coachd/internal/workflow"
)

// Seed writes one YAML file per built-in workflow into dir. Existing
// files are left alone unless force is set, so user edits survive
// re-running the installer. Returns the file names written.
func Seed(dir string, force bool, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workflow directory: %w", err)
	}

	var written []string
	for _, w := range workflow.Defaults() {
		name := w.Type + ".yaml"
		path := filepath.Join(dir, name)

		if !force {
			if _, err := os.Stat(path); err == nil {
				logger.Debug("workflow file exists, keeping", zap.String("file", name))
				continue
			}
		}

		data, err := yaml.Marshal(w)
		if err != nil {
			return written, fmt.Errorf("failed to marshal workflow %q: %w", w.Type, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", name, err)
		}
		written = append(written, name)
		logger.Info("seeded workflow definition", zap.String("file", name))
	}
	return written, nil
}
