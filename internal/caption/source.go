// Package caption defines the boundary through which post captions enter the
// pipeline. The extraction flow only needs text plus an optional thumbnail;
// where those come from (a platform scraper, a file, a queue) is the caller's
// concern.
package caption

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// ErrNoCaption indicates the source produced no usable caption text.
var ErrNoCaption = errors.New("caption source returned no text")

// Source resolves a post URL to its caption text and an optional local
// thumbnail path. An empty thumbnail path means no image is available.
type Source interface {
	Caption(ctx context.Context, postURL string) (text string, thumbnailPath string, err error)
}

// FileSource reads the caption from a local text file, ignoring the post URL.
// It exists for offline runs and tests; platform scrapers implement Source
// directly.
type FileSource struct {
	Path          string
	ThumbnailPath string
	logger        *zap.Logger
}

// NewFileSource creates a FileSource reading caption text from path.
func NewFileSource(path, thumbnailPath string, logger *zap.Logger) *FileSource {
	return &FileSource{
		Path:          path,
		ThumbnailPath: thumbnailPath,
		logger:        logger.Named("caption"),
	}
}

// Caption implements Source.
func (s *FileSource) Caption(ctx context.Context, postURL string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return "", "", fmt.Errorf("reading caption file %s: %w", s.Path, err)
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", "", ErrNoCaption
	}

	s.logger.Info("Caption loaded from file.",
		zap.String("path", s.Path),
		zap.Int("chars", len(text)),
		zap.String("post_url", postURL))

	if s.ThumbnailPath != "" {
		if _, err := os.Stat(s.ThumbnailPath); err != nil {
			s.logger.Warn("Thumbnail path not readable; continuing without it.",
				zap.String("path", s.ThumbnailPath), zap.Error(err))
			return text, "", nil
		}
	}
	return text, s.ThumbnailPath, nil
}

// LiteralSource returns a fixed caption string. Useful when the caption is
// passed straight on the command line.
type LiteralSource struct {
	Text          string
	ThumbnailPath string
}

// Caption implements Source.
func (s LiteralSource) Caption(ctx context.Context, postURL string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	text := strings.TrimSpace(s.Text)
	if text == "" {
		return "", "", ErrNoCaption
	}
	return text, s.ThumbnailPath, nil
}
