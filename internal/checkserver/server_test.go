package checkserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/stepcheck/internal/archive"
	"github.com/Iron-Ham/stepcheck/internal/classifier"
	"github.com/Iron-Ham/stepcheck/internal/errors"
	"github.com/Iron-Ham/stepcheck/internal/event"
	"github.com/Iron-Ham/stepcheck/internal/geometry"
	"github.com/Iron-Ham/stepcheck/internal/inference"
)

// The test frame is 100x200, so the play area spans rows 36 to 170.
const (
	frameW   = 100
	frameH   = 200
	cropTopY = 36
	cropH    = 134
)

type fakeDetector struct {
	mu        sync.Mutex
	dets      []inference.Detection
	err       error
	healthErr error
	lastJPEG  []byte
}

func (f *fakeDetector) Detect(_ context.Context, data []byte) ([]inference.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastJPEG = data
	return f.dets, f.err
}

func (f *fakeDetector) CheckHealth(context.Context) error { return f.healthErr }

type memArchive struct {
	mu   sync.Mutex
	recs []archive.Record
	err  error
}

func (m *memArchive) Save(_ context.Context, rec archive.Record, _ []byte) (archive.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return archive.Record{}, m.err
	}
	rec.ID = "rec-1"
	rec.ImagePath = "/tmp/rec-1.jpg"
	m.recs = append(m.recs, rec)
	return rec, nil
}

func (m *memArchive) records() []archive.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]archive.Record(nil), m.recs...)
}

func framePNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, frameW, frameH))
	for y := range frameH {
		for x := range frameW {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func post(t *testing.T, h http.Handler, body string) classifier.CheckResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/check_piece", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp classifier.CheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

// centre returns the reported centre; the server always sends both fields.
func centre(t *testing.T, resp classifier.CheckResponse) (x, y float64) {
	t.Helper()
	require.NotNil(t, resp.CenterX)
	require.NotNil(t, resp.CenterY)
	return *resp.CenterX, *resp.CenterY
}

func TestCheckPiece_RejectsBadRequests(t *testing.T) {
	h := New(&fakeDetector{}).Handler()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing image", `{"expected_class":"bolt"}`, "Missing 'image' or 'expected_class' in request"},
		{"missing class", `{"image":"abc"}`, "Missing 'image' or 'expected_class' in request"},
		{"not json", `{`, "Missing 'image' or 'expected_class' in request"},
		{"bad base64", `{"image":"!!!","expected_class":"bolt"}`, "Failed to decode image from Base64"},
		{"not an image", mustJSON(t, map[string]any{
			"image": base64.StdEncoding.EncodeToString([]byte("hello")), "expected_class": "bolt",
		}), "Failed to decode image from Base64"},
		{"bad step index", `{"image":"abc","expected_class":"bolt","step_index":"two"}`, "invalid step_index"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, h, tt.body)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, tt.wantErr)
		})
	}
}

func TestCheckPiece_NoDetections(t *testing.T) {
	det := &fakeDetector{}
	arch := &memArchive{}
	h := New(det, WithArchive(arch)).Handler()

	resp := post(t, h, mustJSON(t, map[string]any{"image": framePNG(t), "expected_class": " bolt ", "step_index": 0}))

	assert.True(t, resp.Success)
	assert.False(t, resp.Found)
	assert.False(t, resp.Matched)
	assert.Empty(t, resp.DetectedClass)
	assert.Equal(t, "bolt", resp.ExpectedClass)
	x, y := centre(t, resp)
	assert.Equal(t, classifier.UnknownCoordinate, x)
	assert.Equal(t, classifier.UnknownCoordinate, y)
	assert.NotEmpty(t, resp.AnnotatedImage)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(det.lastJPEG))
	require.NoError(t, err)
	assert.Equal(t, frameW, cfg.Width)
	assert.Equal(t, cropH, cfg.Height, "detector sees only the play area")

	recs := arch.records()
	require.Len(t, recs, 1)
	assert.Equal(t, archive.KindNoDetection, recs[0].Kind)
}

func TestCheckPiece_ExpectedClassAbsent(t *testing.T) {
	det := &fakeDetector{dets: []inference.Detection{
		{Class: "cover", Confidence: 0.9, Box: [4]float64{5, 5, 40, 40}},
	}}
	arch := &memArchive{}
	h := New(det, WithArchive(arch)).Handler()

	resp := post(t, h, mustJSON(t, map[string]any{"image": framePNG(t), "expected_class": "bolt", "step_index": "2"}))

	assert.True(t, resp.Success)
	assert.False(t, resp.Found)
	assert.Equal(t, 2, resp.StepIndex)
	assert.Zero(t, resp.Confidence)
	x, _ := centre(t, resp)
	assert.Equal(t, classifier.UnknownCoordinate, x)

	recs := arch.records()
	require.Len(t, recs, 1)
	assert.Equal(t, archive.KindNoExpected, recs[0].Kind)
	assert.Equal(t, 2, recs[0].StepIndex)
}

func TestCheckPiece_BestCandidate(t *testing.T) {
	tests := []struct {
		name        string
		conf        float64
		wantMatched bool
	}{
		{"confident", 0.9, true},
		{"at threshold", 0.45, true},
		{"below threshold", 0.44, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &fakeDetector{dets: []inference.Detection{
				{Class: "bolt", Confidence: tt.conf / 2, Box: [4]float64{0, 0, 10, 10}},
				{Class: "bolt", Confidence: tt.conf, Box: [4]float64{5, 5, 30, 40},
					Keypoints: []geometry.Point2D{{X: 10, Y: 10}, {X: 20, Y: 30}}},
				{Class: "cover", Confidence: 0.99, Box: [4]float64{50, 50, 90, 90}},
			}}
			h := New(det).Handler()

			resp := post(t, h, mustJSON(t, map[string]any{"image": framePNG(t), "expected_class": "bolt", "step_index": 1}))

			assert.True(t, resp.Success)
			assert.True(t, resp.Found)
			assert.Equal(t, tt.wantMatched, resp.Matched)
			assert.Equal(t, "bolt", resp.DetectedClass)
			assert.InDelta(t, tt.conf, resp.Confidence, 1e-9)
			x, y := centre(t, resp)
			assert.InDelta(t, 15, x, 1e-9)
			assert.InDelta(t, 20+cropTopY, y, 1e-9, "centre is shifted back into full-frame pixels")
			assert.Nil(t, resp.Yaw)
		})
	}
}

func TestCheckPiece_BoxCenterFallback(t *testing.T) {
	det := &fakeDetector{dets: []inference.Detection{
		{Class: "bolt", Confidence: 0.8, Box: [4]float64{10, 20, 30, 60}},
	}}
	resp := post(t, New(det).Handler(), mustJSON(t, map[string]any{"image": framePNG(t), "expected_class": "bolt"}))

	assert.Equal(t, -1, resp.StepIndex)
	x, y := centre(t, resp)
	assert.InDelta(t, 20, x, 1e-9)
	assert.InDelta(t, 40+cropTopY, y, 1e-9)
}

func TestCheckPiece_DetectorFailure(t *testing.T) {
	det := &fakeDetector{err: stderrors.New("model offline")}
	resp := post(t, New(det).Handler(), mustJSON(t, map[string]any{"image": framePNG(t), "expected_class": "bolt"}))

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "model offline")
}

func TestCheckPiece_ArchiveFailureIsNotFatal(t *testing.T) {
	det := &fakeDetector{}
	arch := &memArchive{err: stderrors.New("disk full")}
	bus := event.NewBus(nil)
	archived := 0
	bus.Subscribe(event.TypeDetectionArchived, func(event.Event) { archived++ })

	resp := post(t, New(det, WithArchive(arch), WithBus(bus)).Handler(),
		mustJSON(t, map[string]any{"image": framePNG(t), "expected_class": "bolt"}))

	assert.True(t, resp.Success)
	assert.Zero(t, archived)
}

func TestCheckPiece_PublishesArchivedEvent(t *testing.T) {
	bus := event.NewBus(nil)
	var got []event.DetectionArchivedEvent
	bus.Subscribe(event.TypeDetectionArchived, func(e event.Event) {
		got = append(got, e.(event.DetectionArchivedEvent))
	})

	post(t, New(&fakeDetector{}, WithArchive(&memArchive{}), WithBus(bus)).Handler(),
		mustJSON(t, map[string]any{"image": framePNG(t), "expected_class": "bolt"}))

	require.Len(t, got, 1)
	assert.Equal(t, "rec-1", got[0].RecordID)
	assert.Equal(t, "bolt", got[0].ExpectedClass)
}

func TestHealth(t *testing.T) {
	det := &fakeDetector{}
	h := New(det).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	det.healthErr = stderrors.New("ml service unhealthy: 503")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

// The client and server agree on the wire format end to end.
func TestCheckPiece_WithClassifierClient(t *testing.T) {
	det := &fakeDetector{dets: []inference.Detection{
		{Class: "bracket", Confidence: 0.7, Box: [4]float64{0, 0, 20, 20},
			Keypoints: []geometry.Point2D{{X: 4, Y: 6}}},
	}}
	srv := httptest.NewServer(New(det).Handler())
	defer srv.Close()

	raw, err := base64.StdEncoding.DecodeString(framePNG(t))
	require.NoError(t, err)

	client := classifier.NewClient(srv.URL + "/check_piece")
	res, err := client.Check(context.Background(), classifier.Request{Image: raw, ExpectedClass: "bracket", StepIndex: 1})
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.True(t, res.Matched)
	assert.True(t, res.HasCenter)
	assert.Equal(t, geometry.Point2D{X: 4, Y: 6 + cropTopY}, res.Center)
	assert.NotEmpty(t, res.AnnotatedImage)

	det.mu.Lock()
	det.err = stderrors.New("model offline")
	det.mu.Unlock()
	_, err = client.Check(context.Background(), classifier.Request{Image: raw, ExpectedClass: "bracket"})
	require.Error(t, err)
	assert.Equal(t, errors.KindTransport, errors.KindOf(err))
}

func TestCropPlayArea(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 100))
	src.Set(3, 18, color.RGBA{R: 255, A: 255})

	cropped, top := cropPlayArea(src, 0.18, 0.15)
	assert.Equal(t, 18, top)
	assert.Equal(t, image.Rect(0, 0, 10, 67), cropped.Bounds())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, cropped.RGBAAt(3, 0))

	empty, _ := cropPlayArea(src, 0.6, 0.6)
	assert.True(t, empty.Bounds().Empty())
}

func TestDrawing_StaysInBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	assert.NotPanics(t, func() {
		drawDetection(img, inference.Detection{Class: "x", Confidence: 1, Box: [4]float64{-10, -10, 50, 50}})
		drawCenter(img, geometry.Point2D{X: 19, Y: 0})
	})
	assert.Equal(t, centerColor, img.RGBAAt(19, 0))
}
