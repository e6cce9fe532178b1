// Package disposition classifies completed capture attempts and performs
// the matching filing action on the filesystem zones.
package disposition

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zerotwo/platewatch/internal/models"
)

// Roster is the slice of the store the engine needs: plate lookup and the
// append-only verification ledger.
type Roster interface {
	LookupPlate(ctx context.Context, plate string) (*models.RosterEntry, error)
	AppendVerification(ctx context.Context, entry models.VerificationEntry) error
}

// Zones holds the filesystem areas captures move between.
type Zones struct {
	Flagged string
}

// Outcome reports what the engine decided and did for one attempt.
type Outcome struct {
	Disposition models.Disposition
	Match       *models.RosterEntry
	Ledgered    bool
}

// Engine applies the disposition decision table. Filesystem actions are
// best-effort: failures are logged and never abort the cycle.
type Engine struct {
	roster Roster
	zones  Zones
	now    func() time.Time
	log    zerolog.Logger
}

// New builds an engine. now may be nil, in which case time.Now is used.
func New(roster Roster, zones Zones, now func() time.Time, log zerolog.Logger) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{roster: roster, zones: zones, now: now, log: log}
}

// Resolve classifies one attempt and files the capture accordingly.
// The decision table is evaluated top-down, first match wins:
//
//	capture failed            -> CAPTURE_FAILED    nothing to file
//	no region detected        -> FLAGGED_NO_PLATE  move raw to flagged
//	region but no text        -> FLAGGED_NO_TEXT   save crop, drop raw
//	text, roster match        -> AUTHORIZED        delete raw
//	text, no roster match     -> UNAUTHORIZED      move raw to flagged
//
// Only the branches that evaluated text append a ledger entry.
func (e *Engine) Resolve(ctx context.Context, attempt models.CaptureAttempt) Outcome {
	switch {
	case attempt.ImagePath == "":
		return Outcome{Disposition: models.CaptureFailed}

	case !attempt.Detected:
		e.moveToFlagged(attempt.ImagePath)
		return Outcome{Disposition: models.FlaggedNoRegion}

	case attempt.Text == "":
		e.fileCropped(attempt)
		return Outcome{Disposition: models.FlaggedNoText}
	}

	plate := normalizePlate(attempt.Text)
	match, err := e.roster.LookupPlate(ctx, plate)
	if err != nil {
		e.log.Error().Err(err).Str("plate", plate).Msg("roster lookup failed; treating as no match")
	}

	outcome := Outcome{Match: match}
	if match != nil {
		outcome.Disposition = models.Authorized
		e.remove(attempt.ImagePath)
	} else {
		outcome.Disposition = models.Unauthorized
		e.moveToFlagged(attempt.ImagePath)
	}

	var holder *string
	if match != nil {
		h := match.HolderID
		holder = &h
	}
	entry := models.VerificationEntry{
		ScannedPlate: plate,
		HolderID:     holder,
		MatchFound:   match != nil,
		Confidence:   attempt.OverallConfidence,
		ScannedAt:    e.now(),
	}
	if err := e.roster.AppendVerification(ctx, entry); err != nil {
		e.log.Error().Err(err).Str("plate", plate).Msg("ledger append failed")
	} else {
		outcome.Ledgered = true
	}

	return outcome
}

// fileCropped saves the cropped region into the flagged zone and removes
// the raw photo. If the crop cannot be written, the raw photo is moved to
// flagged instead so the event is never lost.
func (e *Engine) fileCropped(attempt models.CaptureAttempt) {
	base := strings.TrimSuffix(filepath.Base(attempt.ImagePath), filepath.Ext(attempt.ImagePath))
	cropPath := filepath.Join(e.zones.Flagged, base+"_plate.jpg")

	if err := os.WriteFile(cropPath, attempt.Crop, 0o644); err != nil {
		e.log.Warn().Err(err).Str("path", cropPath).Msg("crop save failed; keeping raw photo instead")
		e.moveToFlagged(attempt.ImagePath)
		return
	}
	e.remove(attempt.ImagePath)
}

func (e *Engine) moveToFlagged(path string) {
	dst := filepath.Join(e.zones.Flagged, filepath.Base(path))
	if err := moveFile(path, dst); err != nil {
		e.log.Warn().Err(err).Str("path", path).Msg("could not move capture to flagged area")
	}
}

func (e *Engine) remove(path string) {
	if err := os.Remove(path); err != nil {
		e.log.Warn().Err(err).Str("path", path).Msg("could not remove capture")
	}
}

// moveFile renames, falling back to copy+remove across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func normalizePlate(text string) string {
	return strings.ToUpper(strings.TrimSpace(text))
}
