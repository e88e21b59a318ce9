package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quickex/quickex-backend/internal/config"
	"github.com/quickex/quickex-backend/internal/supabase"
)

func newTestServer(t *testing.T, origins ...string) *httptest.Server {
	t.Helper()
	cfg, err := config.LoadFrom(map[string]string{
		"SUPABASE_URL":         "https://project.supabase.co",
		"SUPABASE_ANON_KEY":    "anon",
		"CORS_ALLOWED_ORIGINS": strings.Join(origins, ","),
	})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store, err := supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	if err != nil {
		t.Fatalf("new supabase client: %v", err)
	}
	srv := httptest.NewServer(New(cfg, store))
	t.Cleanup(srv.Close)
	return srv
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return strings.TrimSpace(string(b))
}

func TestServer_Scenarios(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{name: "valid username", method: http.MethodPost, path: "/username", body: `{"username":"alice_123"}`, wantStatus: http.StatusCreated, wantBody: `{"ok":true}`},
		{name: "invalid username", method: http.MethodPost, path: "/username", body: `{"username":"A"}`, wantStatus: http.StatusBadRequest},
		{name: "unexpected field", method: http.MethodPost, path: "/username", body: `{"username":"alice_123","extra":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK, wantBody: `{"status":"ok"}`},
		{name: "health head", method: http.MethodHead, path: "/health", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/usernames", wantStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodGet, path: "/username", wantStatus: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := srv.Client().Do(req)
			if err != nil {
				t.Fatalf("do: %v", err)
			}
			body := readBody(t, resp)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, tt.wantStatus, body)
			}
			if tt.wantBody != "" && body != tt.wantBody {
				t.Fatalf("body = %s, want %s", body, tt.wantBody)
			}
		})
	}
}

func TestServer_RequestID(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	readBody(t, resp)
	if id := resp.Header.Get(RequestIDHeader); len(id) != 36 {
		t.Fatalf("generated request id = %q, want uuid", id)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	req.Header.Set(RequestIDHeader, "trace-abc")
	resp, err = srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	readBody(t, resp)
	if id := resp.Header.Get(RequestIDHeader); id != "trace-abc" {
		t.Fatalf("request id = %q, want trace-abc", id)
	}
}

func TestServer_CORSReflectsAnyOriginByDefault(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/username", nil)
	req.Header.Set("Origin", "https://app.quickex.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	readBody(t, resp)
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.quickex.example" {
		t.Fatalf("allow-origin = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("allow-credentials = %q, want true", got)
	}
	if id := resp.Header.Get(RequestIDHeader); len(id) != 36 {
		t.Fatalf("preflight request id = %q, want uuid", id)
	}
}

func TestServer_CORSAllowList(t *testing.T) {
	srv := newTestServer(t, "https://allowed.example")

	for origin, want := range map[string]string{
		"https://allowed.example": "https://allowed.example",
		"https://other.example":   "",
	} {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
		req.Header.Set("Origin", origin)
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		readBody(t, resp)
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != want {
			t.Fatalf("%s: allow-origin = %q, want %q", origin, got, want)
		}
	}
}
