package dynform

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr/funcr"
	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"gorm.io/dynform/form"
	"gorm.io/dynform/logger"
	"gorm.io/dynform/orm"
	"gorm.io/dynform/schema"
)

// FileConfig the YAML configuration of an application using dynform
//
//	log_level: info
//	log_backend: zap
//	slow_threshold: 200ms
//	keep_on_missing_embedding: false
//	database: app.db
//	naming:
//	  table_prefix: app_
//	  singular_table: false
type FileConfig struct {
	LogLevel               string        `yaml:"log_level"`
	LogBackend             string        `yaml:"log_backend"`
	SlowThreshold          time.Duration `yaml:"slow_threshold"`
	Colorful               bool          `yaml:"colorful"`
	KeepOnMissingEmbedding bool          `yaml:"keep_on_missing_embedding"`
	Database               string        `yaml:"database"`
	Naming                 NamingConfig  `yaml:"naming"`
}

type NamingConfig struct {
	TablePrefix   string `yaml:"table_prefix"`
	SingularTable bool   `yaml:"singular_table"`
}

// LoadConfig reads a YAML configuration file
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration, missing keys keep their defaults
func ParseConfig(data []byte) (*FileConfig, error) {
	config := &FileConfig{
		LogBackend:    "default",
		SlowThreshold: 200 * time.Millisecond,
		Database:      "dynform.db",
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if _, err := config.level(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *FileConfig) level() (logger.LogLevel, error) {
	if c.LogLevel == "" {
		return logger.DefaultLogLevel(), nil
	}
	return logger.ParseLevel(c.LogLevel)
}

// Logger builds the configured logger backend writing to w
func (c *FileConfig) Logger(w io.Writer) (logger.Interface, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}

	config := logger.Config{
		SlowThreshold:             c.SlowThreshold,
		Colorful:                  c.Colorful,
		IgnoreRecordNotFoundError: true,
		LogLevel:                  level,
	}

	switch strings.ToLower(c.LogBackend) {
	case "", "default":
		return logger.New(log.New(w, "\r\n", log.LstdFlags), config), nil
	case "zap":
		core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(w), logger.ZapLevel(level))
		return logger.NewZapLogger(zap.New(core), config), nil
	case "logrus":
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(logrus.TraceLevel)
		return logger.NewLogrusLogger(l, config), nil
	case "zerolog":
		return logger.NewZerologLogger(zerolog.New(w).Level(logger.ZerologLevel(level)).With().Timestamp().Logger(), config), nil
	case "slog":
		return logger.NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})), config), nil
	case "logr":
		return logger.NewLogrLogger(funcr.New(func(prefix, args string) {
			fmt.Fprintln(w, prefix, args)
		}, funcr.Options{Verbosity: 1}), config), nil
	}
	return nil, fmt.Errorf("unknown log backend %q", c.LogBackend)
}

// NamingStrategy returns the configured naming strategy
func (c *FileConfig) NamingStrategy() schema.NamingStrategy {
	return schema.NamingStrategy{TablePrefix: c.Naming.TablePrefix, SingularTable: c.Naming.SingularTable}
}

// OpenDB opens the configured database with the configured logger
func (c *FileConfig) OpenDB(w io.Writer) (*orm.DB, error) {
	l, err := c.Logger(w)
	if err != nil {
		return nil, err
	}
	return orm.Open(c.Database, &orm.Config{NamingStrategy: c.NamingStrategy(), Logger: l})
}

// Config returns the manager config for registry, nil meaning form.DefaultRegistry
func (c *FileConfig) Config(w io.Writer, registry *form.Registry) (*Config, error) {
	l, err := c.Logger(w)
	if err != nil {
		return nil, err
	}
	return &Config{Logger: l, Registry: registry, KeepOnMissingEmbedding: c.KeepOnMissingEmbedding}, nil
}
