// Package telemetry parses the line-oriented feed coming from the sensor
// board. Lines look like:
//
//	distance: 8.5cm, temperature: 98.6F, battery: 55%
//
// Values may carry a unit suffix glued to the number, or be the N/A
// sentinel when the board could not read that sensor.
package telemetry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zerotwo/platewatch/internal/models"
)

// Sentinel is the exact token the board emits for an unavailable value.
const Sentinel = "N/A"

var fieldLabels = [3]string{"distance", "temperature", "battery"}

var numberRE = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?`)

// ParseLine converts one raw line into a frame. Distance is mandatory: a
// sentinel or unparsable distance rejects the whole line. Temperature and
// battery fall back to nil when absent or unreadable.
func ParseLine(line string, observedAt time.Time) (models.TelemetryFrame, error) {
	frame := models.TelemetryFrame{ObservedAt: observedAt}

	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != len(fieldLabels) {
		return frame, fmt.Errorf("expected %d fields, got %d", len(fieldLabels), len(parts))
	}

	values := [3]*float64{}
	for i, part := range parts {
		label, raw, ok := strings.Cut(part, ":")
		if !ok {
			return frame, fmt.Errorf("field %q has no label separator", strings.TrimSpace(part))
		}
		if !strings.EqualFold(strings.TrimSpace(label), fieldLabels[i]) {
			return frame, fmt.Errorf("field %d: expected label %q, got %q", i, fieldLabels[i], strings.TrimSpace(label))
		}
		values[i] = parseValue(raw)
	}

	if values[0] == nil {
		return frame, fmt.Errorf("distance unavailable in %q", strings.TrimSpace(line))
	}

	frame.Distance = *values[0]
	frame.Temperature = values[1]
	frame.Battery = values[2]
	return frame, nil
}

// parseValue strips whitespace and unit suffixes and converts to a float.
// Returns nil for the N/A sentinel or when no numeric substring exists.
func parseValue(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == Sentinel {
		return nil
	}

	num := numberRE.FindString(raw)
	if num == "" {
		return nil
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return nil
	}
	return &f
}
