package recognize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInference struct {
	regions []Region
	spans   []Span

	detectCalls int
	readCalls   int
}

func (f *fakeInference) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/detect", func(w http.ResponseWriter, r *http.Request) {
		f.detectCalls++
		_ = json.NewEncoder(w).Encode(map[string]any{"regions": f.regions})
	})
	mux.HandleFunc("/read", func(w http.ResponseWriter, r *http.Request) {
		f.readCalls++
		_ = json.NewEncoder(w).Encode(map[string]any{"spans": f.spans})
	})
	return mux
}

func newTestAdapter(t *testing.T, f *fakeInference) *Adapter {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewAdapter(NewClient(srv.Client(), srv.URL), zerolog.Nop())
}

func TestRecognizeHappyPath(t *testing.T) {
	f := &fakeInference{
		regions: []Region{{Confidence: 0.9, Crop: []byte("crop-bytes")}},
		spans:   []Span{{Text: "abc-123", Confidence: 0.8}},
	}
	adapter := newTestAdapter(t, f)

	reading, err := adapter.Recognize(context.Background(), "/tmp/capture.jpg")
	require.NoError(t, err)

	assert.True(t, reading.Detected)
	assert.Equal(t, []byte("crop-bytes"), reading.Crop)
	assert.Equal(t, "ABC123", reading.Text)
	assert.InDelta(t, 0.9, reading.DetectionConfidence, 1e-9)
	assert.InDelta(t, 0.8, reading.RecognitionConfidence, 1e-9)
	assert.InDelta(t, 0.850, reading.OverallConfidence, 1e-9)
}

func TestRecognizeNoRegions(t *testing.T) {
	f := &fakeInference{}
	adapter := newTestAdapter(t, f)

	reading, err := adapter.Recognize(context.Background(), "/tmp/capture.jpg")
	require.NoError(t, err)

	assert.False(t, reading.Detected)
	assert.Empty(t, reading.Text)
	assert.Zero(t, reading.OverallConfidence)
	assert.Equal(t, 0, f.readCalls, "recognition must not run without a region")
}

func TestRecognizeUsesFirstRegionOnly(t *testing.T) {
	f := &fakeInference{
		regions: []Region{
			{Confidence: 0.7, Crop: []byte("best")},
			{Confidence: 0.95, Crop: []byte("ignored")},
		},
		spans: []Span{{Text: "X1", Confidence: 1.0}},
	}
	adapter := newTestAdapter(t, f)

	reading, err := adapter.Recognize(context.Background(), "img.jpg")
	require.NoError(t, err)

	// The engine ranks best-first; no re-ranking on this side.
	assert.Equal(t, []byte("best"), reading.Crop)
	assert.InDelta(t, 0.7, reading.DetectionConfidence, 1e-9)
}

func TestRecognizeEmptyCropSkipsRead(t *testing.T) {
	f := &fakeInference{regions: []Region{{Confidence: 0.6}}}
	adapter := newTestAdapter(t, f)

	reading, err := adapter.Recognize(context.Background(), "img.jpg")
	require.NoError(t, err)

	assert.True(t, reading.Detected)
	assert.Empty(t, reading.Text)
	assert.Equal(t, 0, f.readCalls)
	assert.InDelta(t, 0.3, reading.OverallConfidence, 1e-9)
}

func TestRecognizeSpanCleaningAndAveraging(t *testing.T) {
	f := &fakeInference{
		regions: []Region{{Confidence: 1.0, Crop: []byte("c")}},
		spans: []Span{
			{Text: " ab-1 ", Confidence: 0.6},
			{Text: "!!!", Confidence: 0.1}, // cleans to nothing, excluded
			{Text: "cd2", Confidence: 0.8},
		},
	}
	adapter := newTestAdapter(t, f)

	reading, err := adapter.Recognize(context.Background(), "img.jpg")
	require.NoError(t, err)

	assert.Equal(t, "AB1CD2", reading.Text)
	assert.InDelta(t, 0.7, reading.RecognitionConfidence, 1e-9)
	assert.InDelta(t, 0.850, reading.OverallConfidence, 1e-9)
}

func TestRecognizeZeroSpans(t *testing.T) {
	f := &fakeInference{regions: []Region{{Confidence: 0.9, Crop: []byte("c")}}}
	adapter := newTestAdapter(t, f)

	reading, err := adapter.Recognize(context.Background(), "img.jpg")
	require.NoError(t, err)

	assert.True(t, reading.Detected)
	assert.Empty(t, reading.Text)
	assert.Zero(t, reading.RecognitionConfidence)
	assert.InDelta(t, 0.450, reading.OverallConfidence, 1e-9)
}

func TestRecognizeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	adapter := NewAdapter(NewClient(srv.Client(), srv.URL), zerolog.Nop())

	_, err := adapter.Recognize(context.Background(), "img.jpg")
	require.Error(t, err)
}
