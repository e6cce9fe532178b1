package recognize

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog"
)

// Reading is the normalized result of running one image through detection
// and recognition. A zero Reading means nothing was found.
type Reading struct {
	Detected              bool
	Crop                  []byte
	DetectionConfidence   float64
	Text                  string
	RecognitionConfidence float64
	OverallConfidence     float64
}

// Adapter sequences detect -> crop -> read and folds the engine outputs
// into a single reading. One long-lived instance is constructed at startup
// and handed to the orchestrator.
type Adapter struct {
	client *Client
	log    zerolog.Logger
}

// NewAdapter builds the adapter around an inference client.
func NewAdapter(client *Client, log zerolog.Logger) *Adapter {
	return &Adapter{client: client, log: log}
}

// Recognize runs the full pipeline on one image. Zero detected regions is
// not an error; engine or transport failures are.
func (a *Adapter) Recognize(ctx context.Context, imagePath string) (Reading, error) {
	regions, err := a.client.Detect(ctx, imagePath)
	if err != nil {
		return Reading{}, err
	}
	if len(regions) == 0 {
		a.log.Debug().Str("image", imagePath).Msg("no plate region detected")
		return Reading{}, nil
	}

	// The engine already ranks regions best-first; take the first.
	best := regions[0]
	reading := Reading{
		Detected:            true,
		Crop:                best.Crop,
		DetectionConfidence: best.Confidence,
	}

	if len(best.Crop) > 0 {
		spans, err := a.client.Read(ctx, best.Crop)
		if err != nil {
			return Reading{}, err
		}
		reading.Text, reading.RecognitionConfidence = foldSpans(spans)
	}

	reading.OverallConfidence = round3((reading.DetectionConfidence + reading.RecognitionConfidence) / 2)

	a.log.Debug().
		Str("image", imagePath).
		Str("text", reading.Text).
		Float64("confidence", reading.OverallConfidence).
		Msg("recognition completed")
	return reading, nil
}

// foldSpans concatenates alphanumeric-cleaned spans in engine order and
// averages the confidences of the spans that survived cleaning.
func foldSpans(spans []Span) (string, float64) {
	var sb strings.Builder
	var sum float64
	var n int

	for _, span := range spans {
		cleaned := cleanSpan(span.Text)
		if cleaned == "" {
			continue
		}
		sb.WriteString(cleaned)
		sum += span.Confidence
		n++
	}

	if n == 0 {
		return "", 0
	}
	return sb.String(), sum / float64(n)
}

// cleanSpan drops everything but letters and digits and uppercases the rest.
func cleanSpan(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return strings.ToUpper(sb.String())
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
