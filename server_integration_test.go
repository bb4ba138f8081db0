package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"jerseyocr/models"
	"jerseyocr/pkg/detect"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	// allow callers to pass nil for body safely
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	initDB()
	tmp := t.TempDir()
	_ = os.Setenv("UPLOAD_BASE", tmp)
	seedDB()
	eng := detect.NewTesseractEngine(detect.DefaultEngineConfig())
	if err := eng.Ready(); err != nil {
		t.Logf("tesseract unavailable (%v), running with a stub engine", err)
		pipeline = detect.NewPipeline(&stubEngine{dets: []detect.Detection{
			{Quad: [4]image.Point{{2, 2}, {30, 2}, {30, 30}, {2, 30}}, Text: "23", Confidence: 0.9},
		}}, detect.DefaultConfig(), logrus.StandardLogger())
	} else {
		t.Cleanup(func() { _ = eng.Close() })
		pipeline = detect.NewPipeline(eng, detect.DefaultConfig(), logrus.StandardLogger())
	}
	r := gin.Default()
	setupRoutes(r)
	return r
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	// 1. Register user
	regBody, _ := json.Marshal(map[string]string{"username": "user1", "password": "pass1"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 && resp.Code != 409 {
		b := resp.Body.String()
		t.Fatalf("register failed status=%d body=%s", resp.Code, b)
	}

	// 2. Login
	loginBody, _ := json.Marshal(map[string]string{"username": "user1", "password": "pass1"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("login failed status=%d body=%s", resp.Code, b)
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}
	refresh, _ := loginResp["refresh_token"].(string)
	if refresh == "" {
		t.Fatalf("empty refresh_token in login response: %+v", loginResp)
	}

	// 3. Predict with the token so the detection is attributed
	body, ct := multipartImage(t, "image", "jersey.png", pngBytes(t, 64, 64))
	resp = performRequest(r, http.MethodPost, "/predict", body, token, ct)
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("predict failed status=%d body=%s", resp.Code, b)
	}
	var predResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &predResp)
	if ok, _ := predResp["success"].(bool); !ok {
		t.Fatalf("predict response not successful: %+v", predResp)
	}

	// 4. Detection history contains the new row
	resp = performRequest(r, http.MethodGet, "/detections", nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("list detections failed status=%d body=%s", resp.Code, b)
	}
	var items []models.Detection
	if err := json.Unmarshal(resp.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode detections: %v", err)
	}
	if len(items) == 0 {
		t.Fatalf("expected at least one detection in history")
	}

	// 5. Fetch a single detection by id
	resp = performRequest(r, http.MethodGet, fmt.Sprintf("/detections/%d", items[0].ID), nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("get detection failed status=%d body=%s", resp.Code, b)
	}

	// 6. Me endpoint
	resp = performRequest(r, http.MethodGet, "/me", nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("me failed status=%d body=%s", resp.Code, b)
	}

	// 7. Rotate the refresh token
	refBody, _ := json.Marshal(map[string]string{"refresh_token": refresh})
	resp = performRequest(r, http.MethodPost, "/refresh", bytes.NewBuffer(refBody), "", "application/json")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("refresh failed status=%d body=%s", resp.Code, b)
	}

	// 8. Unauthorized access to protected endpoint should be 401
	unauth := performRequest(r, http.MethodGet, "/detections", nil, "", "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized list detections got %d", unauth.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	initDB()
}
