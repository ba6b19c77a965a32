package httpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPostJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := PostJSON(context.Background(), NewClient(RobotTimeout), srv.URL, map[string]any{"duration": 0.5})
	if err != nil {
		t.Fatalf("PostJSON error: %v", err)
	}
	if got["duration"] != 0.5 {
		t.Errorf("duration = %v, want 0.5", got["duration"])
	}
}

func TestPostJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := PostJSON(context.Background(), NewClient(RobotTimeout), srv.URL, nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", statusErr.StatusCode)
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":"running"}`))
	}))
	defer srv.Close()

	var status struct {
		State string `json:"state"`
	}
	if err := GetJSON(context.Background(), NewClient(RobotTimeout), srv.URL, &status); err != nil {
		t.Fatalf("GetJSON error: %v", err)
	}
	if status.State != "running" {
		t.Errorf("State = %q, want running", status.State)
	}
}
