package inference

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Iron-Ham/stepcheck/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	var gotImage []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		gotImage, _ = io.ReadAll(file)
		_, _ = io.WriteString(w, `{"detections":[
			{"class":"bolt","confidence":0.91,"box":[10,20,30,40],"keypoints":[[12,22],[18,28]]},
			{"class":"cover","confidence":0.3,"box":[0,0,10,10]}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/predict")
	dets, err := c.Detect(context.Background(), []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), gotImage)

	require.Len(t, dets, 2)
	assert.Equal(t, "bolt", dets[0].Class)
	assert.InDelta(t, 0.91, dets[0].Confidence, 1e-9)
	assert.Equal(t, [4]float64{10, 20, 30, 40}, dets[0].Box)
	assert.Equal(t, geometry.Point2D{X: 15, Y: 25}, dets[0].Center())
	assert.Empty(t, dets[1].Keypoints)
	assert.Equal(t, geometry.Point2D{X: 5, Y: 5}, dets[1].Center())
}

func TestDetect_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, "model crashed", "status 500: model crashed"},
		{"bad json", http.StatusOK, "{", "decode response"},
		{"short keypoint", http.StatusOK, `{"detections":[{"class":"a","keypoints":[[1]]}]}`, "keypoint 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).Detect(context.Background(), []byte("x"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheckHealth(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/predict?model=lego")
	assert.NoError(t, c.CheckHealth(context.Background()))

	healthy.Store(false)
	assert.ErrorContains(t, c.CheckHealth(context.Background()), "unhealthy: 503")
}

func TestDetection_MarshalRoundTrip(t *testing.T) {
	d := Detection{
		Class:      "bracket",
		Confidence: 0.5,
		Box:        [4]float64{1, 2, 3, 4},
		Keypoints:  []geometry.Point2D{{X: 1, Y: 2}},
	}
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"class":"bracket","confidence":0.5,"box":[1,2,3,4],"keypoints":[[1,2]]}`, string(data))

	var back Detection
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)
}
