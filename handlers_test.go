package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"jerseyocr/pkg/detect"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// stubEngine returns the same detections for every variant.
type stubEngine struct {
	dets []detect.Detection
	err  error
}

func (s *stubEngine) Recognize(img image.Image) ([]detect.Detection, error) {
	return s.dets, s.err
}

func newTestRouter(t *testing.T, eng detect.Engine) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("UPLOAD_BASE", t.TempDir())
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	pipeline = detect.NewPipeline(eng, detect.DefaultConfig(), log)
	r := gin.New()
	setupRoutes(r)
	return r
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartImage(t *testing.T, field, filename string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(payload); err != nil {
		t.Fatalf("write form payload: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func postPredict(t *testing.T, r *gin.Engine, field, filename string, payload []byte, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartImage(t, field, filename, payload)
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	req.Header.Set("Content-Type", ct)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type predictResponse struct {
	Success bool `json:"success"`
	Results []struct {
		Number   string `json:"number"`
		Accuracy int    `json:"accuracy"`
	} `json:"results"`
	Count            int     `json:"count"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, &stubEngine{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("status field = %q, want ok", resp.Status)
	}
	if resp.Version != serviceVersion {
		t.Fatalf("version = %q, want %q", resp.Version, serviceVersion)
	}
}

func TestPredictReturnsRankedNumbers(t *testing.T) {
	quad := [4]image.Point{{4, 4}, {20, 4}, {20, 20}, {4, 20}}
	eng := &stubEngine{dets: []detect.Detection{
		{Quad: quad, Text: "23", Confidence: 0.91},
		{Quad: quad, Text: "7", Confidence: 0.42},
	}}
	r := newTestRouter(t, eng)

	w := postPredict(t, r, "image", "team.png", pngBytes(t, 32, 32), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	var resp predictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("success = false, want true")
	}
	if resp.Count != 2 || len(resp.Results) != 2 {
		t.Fatalf("count = %d, results = %d, want 2", resp.Count, len(resp.Results))
	}
	if resp.Results[0].Number != "23" || resp.Results[0].Accuracy != 91 {
		t.Fatalf("first result = %+v, want 23 at 91", resp.Results[0])
	}
	if resp.Results[1].Number != "7" || resp.Results[1].Accuracy != 42 {
		t.Fatalf("second result = %+v, want 7 at 42", resp.Results[1])
	}
	if resp.ProcessingTimeMs < 0 {
		t.Fatalf("processing_time_ms = %v, want >= 0", resp.ProcessingTimeMs)
	}
}

func TestPredictIgnoresBadBearerToken(t *testing.T) {
	eng := &stubEngine{dets: []detect.Detection{
		{Quad: [4]image.Point{{0, 0}, {8, 0}, {8, 8}, {0, 8}}, Text: "10", Confidence: 0.8},
	}}
	r := newTestRouter(t, eng)
	h := http.Header{}
	h.Set("Authorization", "Bearer not-a-real-token")
	w := postPredict(t, r, "image", "shot.png", pngBytes(t, 16, 16), h)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (auth on /predict is optional)", w.Code)
	}
}

func TestPredictMissingImageField(t *testing.T) {
	r := newTestRouter(t, &stubEngine{})
	w := postPredict(t, r, "file", "team.png", pngBytes(t, 16, 16), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPredictRejectsUnsupportedExtension(t *testing.T) {
	r := newTestRouter(t, &stubEngine{})
	w := postPredict(t, r, "image", "notes.txt", pngBytes(t, 16, 16), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPredictRejectsUndecodableImage(t *testing.T) {
	r := newTestRouter(t, &stubEngine{})
	w := postPredict(t, r, "image", "broken.png", []byte("definitely not pixels"), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPredictRejectsOversizedUpload(t *testing.T) {
	old := maxUploadBytes
	maxUploadBytes = 1024
	defer func() { maxUploadBytes = old }()

	r := newTestRouter(t, &stubEngine{})
	w := postPredict(t, r, "image", "big.png", bytes.Repeat([]byte{0xAB}, 4096), nil)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
}

func TestPredictSurvivesEngineFailure(t *testing.T) {
	r := newTestRouter(t, &stubEngine{err: errors.New("tesseract crashed")})
	w := postPredict(t, r, "image", "team.png", pngBytes(t, 16, 16), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp predictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Count != 0 || len(resp.Results) != 0 {
		t.Fatalf("response = %+v, want empty success", resp)
	}
}
