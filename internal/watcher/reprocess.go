package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zerotwo/platewatch/internal/models"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".bmp": true}

// ReprocessDir runs every image in dir through recognition and disposition
// once, without telemetry or a camera. Used to replay captures that were
// taken while the inference service was down.
func (l *Loop) ReprocessDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read process dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	l.Log.Info().Int("count", len(names)).Str("dir", dir).Msg("reprocessing folder")

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(dir, name)
		attempt := models.CaptureAttempt{ImagePath: path}

		reading, err := l.Recognizer.Recognize(ctx, path)
		if err != nil {
			l.Log.Error().Err(err).Str("image", path).Msg("recognition failed")
		} else {
			attempt.Detected = reading.Detected
			attempt.Crop = reading.Crop
			attempt.DetectionConfidence = reading.DetectionConfidence
			attempt.Text = reading.Text
			attempt.RecognitionConfidence = reading.RecognitionConfidence
			attempt.OverallConfidence = reading.OverallConfidence
		}

		outcome := l.Resolver.Resolve(ctx, attempt)
		l.Log.Info().
			Str("image", name).
			Str("disposition", string(outcome.Disposition)).
			Str("text", attempt.Text).
			Msg("reprocessed")
	}

	return nil
}
