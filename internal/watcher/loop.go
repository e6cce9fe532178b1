// Package watcher runs the trigger-and-verification control loop: read one
// telemetry line, parse it, publish the snapshot, evaluate the trigger and,
// when it fires, run a full capture cycle before servicing the next line.
//
// The capture cycle is synchronous by design: while the camera and the
// inference calls run, incoming telemetry sits in the transport buffer (or
// is dropped by it). No state is corrupted by this, but telemetry
// continuity is not guaranteed during a cycle. The trigger cooldown is
// armed at fire time, so even an asynchronous variant could never overlap
// two cycles.
package watcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zerotwo/platewatch/internal/disposition"
	"github.com/zerotwo/platewatch/internal/models"
	"github.com/zerotwo/platewatch/internal/recognize"
	"github.com/zerotwo/platewatch/internal/telemetry"
	"github.com/zerotwo/platewatch/internal/trigger"
)

// Camera produces one still image per capture request.
type Camera interface {
	Capture(ctx context.Context) (string, error)
}

// Recognizer runs an image through detection and recognition.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (recognize.Reading, error)
}

// Resolver classifies a completed attempt and performs its filing action.
type Resolver interface {
	Resolve(ctx context.Context, attempt models.CaptureAttempt) disposition.Outcome
}

// Publisher persists the latest frame for external consumers.
type Publisher interface {
	Publish(frame models.TelemetryFrame) error
}

// Stats counts what the loop has seen. Read after Run returns.
type Stats struct {
	Parsed   int
	Rejected int
	Cycles   int
}

// Loop wires the pipeline components together.
type Loop struct {
	Trigger    *trigger.Trigger
	Camera     Camera
	Recognizer Recognizer
	Resolver   Resolver
	Publisher  Publisher
	Log        zerolog.Logger

	Stats Stats
}

// Run consumes telemetry lines from r until ctx is cancelled or the
// transport fails. Loss of the transport is the only fatal condition; every
// per-line failure is logged and skipped. An in-flight capture cycle always
// runs to completion, even across cancellation.
func (l *Loop) Run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			l.Log.Info().
				Int("parsed", l.Stats.Parsed).
				Int("rejected", l.Stats.Rejected).
				Int("cycles", l.Stats.Cycles).
				Msg("watcher stopping")
			return nil

		case line, ok := <-lines:
			if !ok {
				err := <-scanErr
				if err == nil {
					err = io.EOF
				}
				return fmt.Errorf("telemetry transport lost: %w", err)
			}
			l.processLine(ctx, line)
		}
	}
}

func (l *Loop) processLine(ctx context.Context, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	frame, err := telemetry.ParseLine(line, time.Now().UTC())
	if err != nil {
		l.Stats.Rejected++
		l.Log.Debug().Err(err).Str("line", line).Msg("rejected telemetry line")
		return
	}
	l.Stats.Parsed++

	if err := l.Publisher.Publish(frame); err != nil {
		l.Log.Warn().Err(err).Msg("snapshot publish failed")
	}

	if !l.Trigger.Observe(frame.Distance) {
		return
	}

	l.Log.Info().Float64("distance", frame.Distance).Msg("vehicle detected, starting capture cycle")
	l.Stats.Cycles++

	// The cycle finishes even if the loop is being shut down, so the
	// camera and the filing zones are never left mid-write.
	cycleCtx := context.WithoutCancel(ctx)
	attempt := l.runCycle(cycleCtx, frame)
	outcome := l.Resolver.Resolve(cycleCtx, attempt)

	evt := l.Log.Info().
		Str("disposition", string(outcome.Disposition)).
		Str("text", attempt.Text).
		Float64("confidence", attempt.OverallConfidence)
	if outcome.Match != nil {
		evt = evt.Str("holder", outcome.Match.Name)
	}
	evt.Msg("capture cycle completed")
}

// runCycle requests an image and sequences it through the recognition
// adapter. It never fails: every error is folded into the attempt.
func (l *Loop) runCycle(ctx context.Context, frame models.TelemetryFrame) models.CaptureAttempt {
	attempt := models.CaptureAttempt{Frame: frame}

	path, err := l.Camera.Capture(ctx)
	if err != nil {
		l.Log.Error().Err(err).Msg("capture failed")
		return attempt
	}
	attempt.ImagePath = path

	reading, err := l.Recognizer.Recognize(ctx, path)
	if err != nil {
		// Inference failure counts as zero detections; the photo is
		// still filed by the resolver.
		l.Log.Error().Err(err).Str("image", path).Msg("recognition failed")
		return attempt
	}

	attempt.Detected = reading.Detected
	attempt.Crop = reading.Crop
	attempt.DetectionConfidence = reading.DetectionConfidence
	attempt.Text = reading.Text
	attempt.RecognitionConfidence = reading.RecognitionConfidence
	attempt.OverallConfidence = reading.OverallConfidence
	return attempt
}
