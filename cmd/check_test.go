package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hpkotak/codebud/internal/config"
	"github.com/hpkotak/codebud/internal/provider"
)

// stubProvider implements provider.Provider for availability checks.
type stubProvider struct {
	availErr error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Available(context.Context) error { return s.availErr }

func (s *stubProvider) Generate(context.Context, []provider.Message, string) (provider.Result, error) {
	return provider.Result{}, nil
}

func TestRunCheckProvider(t *testing.T) {
	tests := []struct {
		name     string
		buildErr error
		availErr error
		wantErr  string
		wantOut  string
	}{
		{
			name:    "available",
			wantOut: "[ok] stub model " + config.DefaultModel + " is available",
		},
		{
			name:     "unreachable",
			availErr: errors.New("cannot reach Ollama"),
			wantErr:  "stub: cannot reach Ollama",
		},
		{
			name:     "build failure",
			buildErr: errors.New("model name is required"),
			wantErr:  "creating provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restore := saveCmdVars(t)
			defer restore()
			setupTestConfig(t, config.Default())

			var got provider.BuildConfig
			newProvider = func(bc provider.BuildConfig) (provider.Provider, error) {
				got = bc
				if tt.buildErr != nil {
					return nil, tt.buildErr
				}
				return &stubProvider{availErr: tt.availErr}, nil
			}
			out := &bytes.Buffer{}
			ioOut = out

			err := runCheck(nil, nil)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("runCheck() error = %v, want substring %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("runCheck() unexpected error: %v", err)
			}
			if !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output = %q, want %q", out.String(), tt.wantOut)
			}
			if got.Provider != provider.Ollama || got.Endpoints.Ollama != provider.DefaultOllamaHost {
				t.Errorf("build config = %+v, want configured ollama session", got)
			}
		})
	}
}

func TestRunCheckServer(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr string
	}{
		{name: "healthy", status: http.StatusOK},
		{name: "unhealthy", status: http.StatusServiceUnavailable, wantErr: "server"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restore := saveCmdVars(t)
			defer restore()
			setupTestConfig(t, nil)

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					http.NotFound(w, r)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"status":"ok"}`))
			}))
			defer srv.Close()
			t.Setenv("CODEBUD_SERVER", srv.URL)

			newProvider = func(provider.BuildConfig) (provider.Provider, error) {
				t.Fatal("provider should not be built when a server is configured")
				return nil, nil
			}
			out := &bytes.Buffer{}
			ioOut = out

			err := runCheck(nil, nil)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("runCheck() error = %v, want substring %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("runCheck() unexpected error: %v", err)
			}
			if !strings.Contains(out.String(), "is healthy") {
				t.Errorf("output = %q, want healthy message", out.String())
			}
		})
	}
}
