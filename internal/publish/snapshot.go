// Package publish maintains the single sensor snapshot record consumed by
// the dashboard.
package publish

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zerotwo/platewatch/internal/models"
)

// Snapshot writes the latest telemetry frame to a JSON file. Every publish
// replaces the file wholesale via rename, so readers always observe either
// the previous complete snapshot or the new one.
type Snapshot struct {
	Path string
}

// Publish overwrites the snapshot with the given frame.
func (s *Snapshot) Publish(frame models.TelemetryFrame) error {
	d := frame.Distance
	snap := models.SensorSnapshot{
		Temperature: frame.Temperature,
		Battery:     frame.Battery,
		Distance:    &d,
		LastUpdate:  frame.ObservedAt,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads the current snapshot. os.ErrNotExist is returned unchanged
// when nothing has been published yet.
func (s *Snapshot) Load() (models.SensorSnapshot, error) {
	var snap models.SensorSnapshot

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
