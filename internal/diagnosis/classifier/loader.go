package classifier

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/config"
)

type openFunc func(cfg config.ModelConfig, numColumns, numLabels int) (session, error)

// Loader resolves the process-wide Adapter exactly once. A failed load is
// permanent: later calls get the same Unavailable adapter without retrying.
type Loader struct {
	cfg    config.ModelConfig
	open   openFunc
	logger *slog.Logger

	once    sync.Once
	adapter Adapter
}

func NewLoader(cfg config.ModelConfig) *Loader {
	return &Loader{
		cfg: cfg,
		open: func(cfg config.ModelConfig, numColumns, numLabels int) (session, error) {
			return openORT(cfg.ModelPath, cfg.SharedLibraryPath, cfg.InputName, cfg.OutputName, numColumns, numLabels)
		},
		logger: slog.Default().With("component", "classifier-loader"),
	}
}

// Adapter returns the loaded model, or Unavailable if loading failed.
func (l *Loader) Adapter() Adapter {
	l.once.Do(func() {
		l.adapter = l.load()
	})
	return l.adapter
}

func (l *Loader) load() Adapter {
	s, err := schema.Load(l.cfg.FeaturesPath)
	if err != nil {
		l.logger.Warn("feature schema unavailable, classifier disabled", "path", l.cfg.FeaturesPath, "error", err)
		return NewUnavailable(err, nil)
	}
	if !l.cfg.Enabled {
		l.logger.Info("classifier disabled by configuration", "schema_version", s.Version())
		return NewUnavailable(fmt.Errorf("%w: disabled", ErrUnavailable), s)
	}
	labels, err := loadLabels(l.cfg.LabelsPath)
	if err != nil {
		l.logger.Warn("classifier labels unavailable", "path", l.cfg.LabelsPath, "error", err)
		return NewUnavailable(err, s)
	}
	sess, err := l.open(l.cfg, s.Len(), len(labels))
	if err != nil {
		l.logger.Warn("classifier model unavailable", "path", l.cfg.ModelPath, "error", err)
		return NewUnavailable(err, s)
	}
	l.logger.Info("classifier loaded",
		"schema_version", s.Version(),
		"columns", s.Len(),
		"labels", len(labels),
	)
	return newModel(s, labels, sess)
}

// loadLabels reads the ordered class labels (a JSON or YAML list).
func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading labels %s: %w", path, err)
	}
	var labels []string
	if err := yaml.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("parsing labels %s: %w", path, err)
	}
	for i, l := range labels {
		labels[i] = strings.TrimSpace(l)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels %s: empty", path)
	}
	return labels, nil
}
