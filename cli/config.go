package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"gorm.io/dynform"
)

// ConfigFile the file name GenerateConfig writes
const ConfigFile = "dynform.yaml"

// GenerateConfig writes dynform.yaml for the log backend, e.g. zap, logrus, zerolog, slog, logr
func GenerateConfig(baseFolder, logBackend, database string) error {
	config, err := dynform.ParseConfig(nil)
	if err != nil {
		return err
	}

	config.LogLevel = "warn"
	config.LogBackend = logBackend
	if database != "" {
		config.Database = database
	}

	if _, err := config.Logger(io.Discard); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(baseFolder, os.ModePerm); err != nil {
		return err
	}
	return writeFile(filepath.Join(baseFolder, ConfigFile), string(data))
}
