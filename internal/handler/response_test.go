package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/freeeve/galcon/internal/service"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]string{"id": "m-1"})

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type=application/json, got %s", ct)
	}
	var result map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result["id"] != "m-1" {
		t.Errorf("unexpected body: %v", result)
	}
}

func TestWriteJSONEmptySlice(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, []struct{}{})

	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected [], got %s", body)
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrMatchNotFound, http.StatusNotFound},
		{service.ErrNotRunning, http.StatusNotFound},
		{service.ErrTooManyMatches, http.StatusTooManyRequests},
		{fmt.Errorf("%w: %q", service.ErrUnknownProfile, "x"), http.StatusBadRequest},
		{fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeServiceError(rec, tt.err)
		if rec.Code != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, rec.Code)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"duel","seed":9}`))
	var data struct {
		Name string `json:"name"`
		Seed int64  `json:"seed"`
	}
	if err := decodeJSON(httptest.NewRecorder(), req, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Name != "duel" || data.Seed != 9 {
		t.Errorf("unexpected decode result: %+v", data)
	}
}

func TestDecodeJSONRejectsBadBodies(t *testing.T) {
	bodies := map[string]string{
		"invalid":  "not json",
		"empty":    "",
		"oversize": `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`,
	}
	for name, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var data struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(httptest.NewRecorder(), req, &data); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=0", 20},
		{"limit=-3", 20},
		{"limit=abc", 20},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		if got := queryInt(req, "limit", 20); got != tt.want {
			t.Errorf("%q: expected %d, got %d", tt.query, tt.want, got)
		}
	}
}
