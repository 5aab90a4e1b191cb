package handlers_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/labrecon/pkg/handlers"
)

func TestRespondJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		data       any
		wantStatus int
	}{
		{"200 with map", http.StatusOK, map[string]string{"status": "OK"}, http.StatusOK},
		{"201 with struct", http.StatusCreated, struct{ ID string }{ID: "abc"}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handlers.RespondJSON(rec, tt.status, tt.data)

			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.wantStatus {
				t.Errorf("status: got %d, want %d", res.StatusCode, tt.wantStatus)
			}
			if ct := res.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type: got %s", ct)
			}

			body, _ := io.ReadAll(res.Body)
			var parsed map[string]any
			if err := json.Unmarshal(body, &parsed); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := httptest.NewRecorder()

	handlers.RespondError(rec, logger, http.StatusConflict, errors.New("divergence already resolved"))

	res := rec.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusConflict {
		t.Errorf("status: got %d, want 409", res.StatusCode)
	}

	var parsed map[string]string
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if parsed["error"] != "divergence already resolved" {
		t.Errorf("error: got %s", parsed["error"])
	}
}

func TestDecodeJSON(t *testing.T) {
	type command struct {
		Notes string `json:"notes"`
	}

	tests := []struct {
		name    string
		body    string
		limit   int64
		wantErr bool
	}{
		{"valid", `{"notes":"ok"}`, 0, false},
		{"unknown field", `{"notes":"ok","extra":1}`, 0, true},
		{"malformed", `{"notes":`, 0, true},
		{"trailing data", `{"notes":"a"}{"notes":"b"}`, 0, true},
		{"too large", `{"notes":"` + strings.Repeat("x", 64) + `"}`, 16, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.limit > 0 {
				req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, tt.limit)
			}

			var cmd command
			err := handlers.DecodeJSON(req, &cmd)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, handlers.ErrInvalidBody) {
				t.Errorf("DecodeJSON() error = %v, want ErrInvalidBody", err)
			}
			if err == nil && cmd.Notes != "ok" {
				t.Errorf("Notes = %q, want ok", cmd.Notes)
			}
		})
	}
}
