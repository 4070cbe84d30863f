package checkserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/image/draw"

	"github.com/Iron-Ham/stepcheck/internal/archive"
	"github.com/Iron-Ham/stepcheck/internal/classifier"
	"github.com/Iron-Ham/stepcheck/internal/event"
	"github.com/Iron-Ham/stepcheck/internal/geometry"
	"github.com/Iron-Ham/stepcheck/internal/inference"
)

const annotatedJPEGQuality = 95

// checkRequest mirrors classifier.CheckRequest but keeps track of which
// fields were present.
type checkRequest struct {
	Image         *string         `json:"image"`
	ExpectedClass json.RawMessage `json:"expected_class"`
	StepIndex     json.RawMessage `json:"step_index"`
}

func (s *Server) handleCheckPiece(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		s.logger.Warn("malformed check request", "error", err)
		writeJSON(w, http.StatusOK, classifier.ErrorResponse("Missing 'image' or 'expected_class' in request"))
		return
	}
	if req.Image == nil || len(req.ExpectedClass) == 0 {
		writeJSON(w, http.StatusOK, classifier.ErrorResponse("Missing 'image' or 'expected_class' in request"))
		return
	}

	stepIndex, err := parseStepIndex(req.StepIndex)
	if err != nil {
		writeJSON(w, http.StatusOK, classifier.ErrorResponse("%v", err))
		return
	}

	frame, err := decodeFrame(*req.Image)
	if err != nil {
		s.logger.Warn("undecodable frame", "error", err)
		writeJSON(w, http.StatusOK, classifier.ErrorResponse("Failed to decode image from Base64"))
		return
	}

	res, err := s.Check(r.Context(), frame, classText(req.ExpectedClass), stepIndex)
	if err != nil {
		s.logger.Error("check failed", "error", err, "step", stepIndex)
		writeJSON(w, http.StatusOK, classifier.ErrorResponse("%v", err))
		return
	}
	writeJSON(w, http.StatusOK, classifier.NewCheckResponse(res))
}

// Check runs detection on frame and reports on the expected class.
func (s *Server) Check(ctx context.Context, frame image.Image, expectedClass string, stepIndex int) (classifier.DetectionResult, error) {
	expectedClass = strings.TrimSpace(expectedClass)

	cropped, cropTop := cropPlayArea(frame, s.cropTop, s.cropBottom)
	if cropped.Bounds().Empty() {
		return classifier.DetectionResult{}, fmt.Errorf("cropped frame is empty")
	}
	croppedJPEG, err := encodeJPEG(cropped)
	if err != nil {
		return classifier.DetectionResult{}, err
	}

	dets, err := s.detector.Detect(ctx, croppedJPEG)
	if err != nil {
		return classifier.DetectionResult{}, err
	}

	res := classifier.DetectionResult{
		Success:       true,
		ExpectedClass: expectedClass,
		StepIndex:     stepIndex,
	}
	rec := archive.Record{StepIndex: stepIndex, ExpectedClass: expectedClass}

	var candidates []inference.Detection
	for _, d := range dets {
		if d.Class == expectedClass {
			candidates = append(candidates, d)
		}
	}

	annotated := cropped
	switch {
	case len(dets) == 0:
		rec.Kind = archive.KindNoDetection
	case len(candidates) == 0:
		rec.Kind = archive.KindNoExpected
		annotated = cloneRGBA(cropped)
		for _, d := range dets {
			drawDetection(annotated, d)
		}
	default:
		best := candidates[0]
		for _, d := range candidates[1:] {
			if d.Confidence > best.Confidence {
				best = d
			}
		}
		local := best.Center()
		annotated = cloneRGBA(cropped)
		drawDetection(annotated, best)
		drawCenter(annotated, local)

		res.Found = true
		res.Matched = best.Confidence >= s.matchThreshold
		res.DetectedClass = best.Class
		res.Confidence = best.Confidence
		res.Center = local.Add(geometry.Point2D{Y: float64(cropTop)})
		res.HasCenter = true

		rec.Kind = archive.KindExpected
		rec.DetectedClass = best.Class
		rec.Confidence = best.Confidence
		rec.Matched = res.Matched
	}

	res.AnnotatedImage, err = encodeJPEG(annotated)
	if err != nil {
		return classifier.DetectionResult{}, err
	}

	s.logger.Info("piece checked",
		"step", stepIndex,
		"expected_class", expectedClass,
		"detections", len(dets),
		"found", res.Found,
		"matched", res.Matched,
		"confidence", res.Confidence,
	)
	s.store(ctx, rec, res.AnnotatedImage)
	return res, nil
}

// store archives a frame. Failures are logged and do not affect the answer.
func (s *Server) store(ctx context.Context, rec archive.Record, jpegData []byte) {
	if s.archive == nil {
		return
	}
	saved, err := s.archive.Save(ctx, rec, jpegData)
	if err != nil {
		s.logger.Warn("failed to archive detection", "error", err, "step", rec.StepIndex)
		return
	}
	s.bus.Publish(event.NewDetectionArchivedEvent(saved.ID, saved.ExpectedClass, saved.ImagePath))
}

// cropPlayArea removes the top and bottom bands of the frame and returns the
// remainder along with its vertical offset in the original.
func cropPlayArea(img image.Image, top, bottom float64) (*image.RGBA, int) {
	b := img.Bounds()
	h := b.Dy()
	yStart := clamp(int(float64(h)*top), 0, h)
	yEnd := clamp(int(float64(h)*(1-bottom)), yStart, h)

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), yEnd-yStart))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(b.Min.X, b.Min.Y+yStart), draw.Src)
	return dst, yStart
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: annotatedJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeFrame decodes base64 image data, ignoring whitespace and line breaks.
func decodeFrame(b64 string) (image.Image, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, b64)
	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// classText returns a JSON string value unquoted, and any other value as its
// literal text.
func classText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// parseStepIndex accepts a number or a numeric string. An absent index is -1.
func parseStepIndex(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return -1, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("invalid step_index: %s", raw)
}
