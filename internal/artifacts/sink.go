// internal/artifacts/sink.go

// Package artifacts persists diagnostic dumps (HTML snapshots, candidate
// JSON) for offline inspection. Writes are strictly best-effort: every
// failure is swallowed after a debug log, so a full disk or bad permissions
// can never break a scrape run. The core never reads these files back.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sink writes tagged, timestamped artifacts into a scratch directory. A nil
// Sink is valid and discards everything, which keeps call sites free of
// enabled-checks.
type Sink struct {
	dir    string
	runID  string
	logger *zap.Logger
}

// NewSink creates a sink rooted at dir. The run ID disambiguates artifacts
// from concurrent or repeated runs sharing a scratch directory.
func NewSink(dir string, logger *zap.Logger) *Sink {
	return &Sink{
		dir:    dir,
		runID:  uuid.New().String()[:8],
		logger: logger.Named("artifacts"),
	}
}

// SaveHTML persists a markup snapshot under the given component tag.
func (s *Sink) SaveHTML(tag, html string) {
	if s == nil {
		return
	}
	path := s.path(tag, "html")
	if err := s.write(path, []byte(html)); err != nil {
		s.logger.Debug("Failed to write HTML artifact.", zap.String("tag", tag), zap.Error(err))
		return
	}
	s.logger.Info("Wrote diagnostic HTML.", zap.String("path", path))
}

// SaveJSON persists an arbitrary value as indented JSON under the given tag.
func (s *Sink) SaveJSON(tag string, v interface{}) {
	if s == nil {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.logger.Debug("Failed to marshal JSON artifact.", zap.String("tag", tag), zap.Error(err))
		return
	}
	path := s.path(tag, "json")
	if err := s.write(path, data); err != nil {
		s.logger.Debug("Failed to write JSON artifact.", zap.String("tag", tag), zap.Error(err))
		return
	}
	s.logger.Info("Wrote diagnostic JSON.", zap.String("path", path))
}

func (s *Sink) path(tag, ext string) string {
	name := fmt.Sprintf("%s_%d_%s.%s", tag, time.Now().Unix(), s.runID, ext)
	return filepath.Join(s.dir, name)
}

func (s *Sink) write(path string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
