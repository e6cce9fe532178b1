// Package capture abstracts the still-image capture device.
package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Camera produces one still image per call and returns its path inside the
// raw capture area. Capture is synchronous and blocking.
type Camera interface {
	Capture(ctx context.Context) (string, error)
}

// capturePath builds a collision-free file name inside dir.
func capturePath(dir string) string {
	stamp := time.Now().UTC().Format("20060102_150405")
	short := uuid.NewString()[:8]
	return filepath.Join(dir, fmt.Sprintf("capture_%s_%s.jpg", stamp, short))
}

// ExecCamera shells out to an external still-camera binary (rpicam-still or
// compatible) that writes the image to the path given as its last argument.
type ExecCamera struct {
	Command string
	Args    []string
	Dir     string
	Log     zerolog.Logger
}

// Capture runs the camera binary and verifies it produced a non-empty file.
func (c *ExecCamera) Capture(ctx context.Context) (string, error) {
	path := capturePath(c.Dir)

	args := append(append([]string{}, c.Args...), path)
	cmd := exec.CommandContext(ctx, c.Command, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("camera command %s: %w (%s)", c.Command, err, strings.TrimSpace(string(out)))
	}

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return "", fmt.Errorf("camera command %s produced no image at %s", c.Command, path)
	}

	c.Log.Debug().Str("path", path).Msg("captured photo")
	return path, nil
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// QueueCamera serves pre-staged images from a directory instead of driving
// real hardware. Used on bench rigs without a camera attached: each capture
// consumes the oldest queued image, moving it into the raw capture area
// under a fresh name.
type QueueCamera struct {
	QueueDir string
	Dir      string
	Log      zerolog.Logger
}

// Capture pops the next queued image. An empty queue is a capture failure.
func (c *QueueCamera) Capture(ctx context.Context) (string, error) {
	entries, err := os.ReadDir(c.QueueDir)
	if err != nil {
		return "", fmt.Errorf("read capture queue %s: %w", c.QueueDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return "", fmt.Errorf("capture queue %s is empty", c.QueueDir)
	}
	sort.Strings(names)

	src := filepath.Join(c.QueueDir, names[0])
	dst := capturePath(c.Dir)
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("dequeue %s: %w", src, err)
	}

	c.Log.Debug().Str("src", src).Str("path", dst).Msg("dequeued staged photo")
	return dst, nil
}
