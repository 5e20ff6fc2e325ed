package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hpkotak/codebud/internal/prompt"
	"github.com/hpkotak/codebud/internal/provider"
	"github.com/hpkotak/codebud/internal/registry"
)

// recordingProvider captures the messages of every Generate call.
type recordingProvider struct {
	cfg    provider.Config
	result provider.Result
	err    error

	mu    sync.Mutex
	calls [][]provider.Message
}

func (p *recordingProvider) Generate(_ context.Context, messages []provider.Message, _ string) (provider.Result, error) {
	p.mu.Lock()
	p.calls = append(p.calls, messages)
	p.mu.Unlock()
	return p.result, p.err
}
func (p *recordingProvider) Name() string                    { return p.cfg.Provider }
func (p *recordingProvider) Available(context.Context) error { return nil }

func (p *recordingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// fakeClients builds recordingProviders and counts builds.
type fakeClients struct {
	builds atomic.Int32
	err    error
	result provider.Result
}

func (f *fakeClients) builder(bc provider.BuildConfig) (provider.Provider, error) {
	f.builds.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &recordingProvider{cfg: bc.Config, result: f.result}, nil
}

func newTestService(t *testing.T, f *fakeClients) *Service {
	t.Helper()
	return New(registry.NewWithBuilder(provider.Endpoints{}, f.builder), nil)
}

func activeClient(t *testing.T, s *Service) *recordingProvider {
	t.Helper()
	sess := s.current.Load()
	if sess == nil {
		t.Fatal("service is unconfigured")
	}
	return sess.client.(*recordingProvider)
}

var validConfig = provider.Config{Provider: "openai", APIKey: "sk-test", Model: "gpt-4"}

func TestSendMessageUnconfigured(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	s := New(registry.New(provider.Endpoints{OpenAI: srv.URL, Anthropic: srv.URL, Gemini: srv.URL, Ollama: srv.URL}), nil)
	_, err := s.SendMessage(context.Background(), "how do I loop?", "python", nil)
	if !errors.Is(err, ErrConfigurationRequired) {
		t.Fatalf("SendMessage() error = %v, want ErrConfigurationRequired", err)
	}
	if err.Error() != "AI configuration not set" {
		t.Errorf("error message = %q", err.Error())
	}
	if hits.Load() != 0 {
		t.Errorf("unconfigured SendMessage made %d requests", hits.Load())
	}
}

func TestUpdateConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		cfg         provider.Config
		wantDetails map[string]string
	}{
		{
			name:        "missing api key",
			cfg:         provider.Config{Provider: "x", APIKey: "", Model: "m"},
			wantDetails: map[string]string{"apiKey": "API key is required"},
		},
		{
			name:        "missing provider",
			cfg:         provider.Config{Provider: "", APIKey: "k", Model: "m"},
			wantDetails: map[string]string{"provider": "Provider is required"},
		},
		{
			name:        "missing model",
			cfg:         provider.Config{Provider: "openai", APIKey: "k"},
			wantDetails: map[string]string{"model": "Model name is required"},
		},
		{
			name: "all missing",
			cfg:  provider.Config{},
			wantDetails: map[string]string{
				"apiKey":   "API key is required",
				"provider": "Provider is required",
				"model":    "Model name is required",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeClients{}
			s := newTestService(t, f)
			if err := s.UpdateConfig(context.Background(), validConfig); err != nil {
				t.Fatalf("initial UpdateConfig() unexpected error: %v", err)
			}
			before := s.current.Load()

			err := s.UpdateConfig(context.Background(), tt.cfg)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("UpdateConfig() error = %v, want *ValidationError", err)
			}
			if len(vErr.Details) != len(tt.wantDetails) {
				t.Errorf("details = %v, want %v", vErr.Details, tt.wantDetails)
			}
			for field, msg := range tt.wantDetails {
				if vErr.Details[field] != msg {
					t.Errorf("details[%s] = %q, want %q", field, vErr.Details[field], msg)
				}
			}
			if s.current.Load() != before {
				t.Error("failed UpdateConfig changed the active session")
			}
			if f.builds.Load() != 1 {
				t.Errorf("builds = %d, want 1", f.builds.Load())
			}
		})
	}
}

func TestUpdateConfigUnsupportedProvider(t *testing.T) {
	f := &fakeClients{}
	s := newTestService(t, f)

	err := s.UpdateConfig(context.Background(), provider.Config{Provider: "cohere", APIKey: "k", Model: "m"})
	if !errors.Is(err, provider.ErrUnsupportedProvider) {
		t.Fatalf("UpdateConfig() error = %v, want ErrUnsupportedProvider", err)
	}
	if !strings.Contains(err.Error(), "openai, anthropic, gemini, ollama") {
		t.Errorf("error %q should list the supported providers", err.Error())
	}
	if _, ok := s.Session(); ok {
		t.Error("session configured after unsupported provider")
	}
}

func TestUpdateConfigAdapterInitFailure(t *testing.T) {
	f := &fakeClients{err: errors.New("bad base url")}
	s := newTestService(t, f)

	err := s.UpdateConfig(context.Background(), validConfig)
	var initErr *AdapterInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("UpdateConfig() error = %v, want *AdapterInitError", err)
	}
	if initErr.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", initErr.Provider)
	}
	if !strings.Contains(err.Error(), "bad base url") {
		t.Errorf("error %q should wrap the cause", err.Error())
	}
	if _, ok := s.Session(); ok {
		t.Error("session configured after init failure")
	}
}

func TestUpdateConfigIdempotent(t *testing.T) {
	f := &fakeClients{}
	s := newTestService(t, f)
	ctx := context.Background()

	if err := s.UpdateConfig(ctx, validConfig); err != nil {
		t.Fatalf("UpdateConfig() unexpected error: %v", err)
	}
	first := s.current.Load()
	if err := s.UpdateConfig(ctx, validConfig); err != nil {
		t.Fatalf("UpdateConfig() unexpected error: %v", err)
	}
	second := s.current.Load()

	if first.cfg != second.cfg {
		t.Errorf("config changed: %+v -> %+v", first.cfg, second.cfg)
	}
	if first.client != second.client {
		t.Error("repeated identical UpdateConfig swapped the client")
	}
	if f.builds.Load() != 1 {
		t.Errorf("builds = %d, want 1", f.builds.Load())
	}
}

func TestUpdateConfigNormalizesProvider(t *testing.T) {
	s := newTestService(t, &fakeClients{})
	cfg := validConfig
	cfg.Provider = " OpenAI"
	if err := s.UpdateConfig(context.Background(), cfg); err != nil {
		t.Fatalf("UpdateConfig() unexpected error: %v", err)
	}
	got, ok := s.Session()
	if !ok || got.Provider != "openai" {
		t.Errorf("Session() = %+v, %v; want provider openai", got, ok)
	}
}

func TestSendMessageOrdering(t *testing.T) {
	f := &fakeClients{result: provider.Result{Explanation: "e", Code: "c"}}
	s := newTestService(t, f)
	if err := s.UpdateConfig(context.Background(), validConfig); err != nil {
		t.Fatalf("UpdateConfig() unexpected error: %v", err)
	}

	history := []provider.Message{
		{Role: provider.RoleUser, Content: "a"},
		{Role: provider.RoleAssistant, Content: "b"},
	}
	got, err := s.SendMessage(context.Background(), "c", "python", history)
	if err != nil {
		t.Fatalf("SendMessage() unexpected error: %v", err)
	}
	if got != f.result {
		t.Errorf("SendMessage() = %+v, want %+v", got, f.result)
	}

	client := activeClient(t, s)
	if client.callCount() != 1 {
		t.Fatalf("Generate calls = %d, want 1", client.callCount())
	}
	want := []provider.Message{
		{Role: provider.RoleSystem, Content: prompt.SystemPrompt("python")},
		{Role: provider.RoleUser, Content: "a"},
		{Role: provider.RoleAssistant, Content: "b"},
		{Role: provider.RoleUser, Content: "c"},
	}
	sent := client.calls[0]
	if len(sent) != len(want) {
		t.Fatalf("sent %d messages, want %d", len(sent), len(want))
	}
	for i := range want {
		if sent[i] != want[i] {
			t.Errorf("message[%d] = %+v, want %+v", i, sent[i], want[i])
		}
	}
	if len(history) != 2 {
		t.Errorf("history mutated: %+v", history)
	}
}

func TestSendMessageValidation(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		language string
	}{
		{"empty message", "", "go"},
		{"empty language", "how?", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, &fakeClients{})
			if err := s.UpdateConfig(context.Background(), validConfig); err != nil {
				t.Fatalf("UpdateConfig() unexpected error: %v", err)
			}
			_, err := s.SendMessage(context.Background(), tt.text, tt.language, nil)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("SendMessage() error = %v, want *ValidationError", err)
			}
			if vErr.Message != "Message and language are required" {
				t.Errorf("Message = %q", vErr.Message)
			}
			if activeClient(t, s).callCount() != 0 {
				t.Error("invalid SendMessage reached the provider")
			}
		})
	}
}

func TestSendMessageWhitespaceIsNotEmpty(t *testing.T) {
	s := newTestService(t, &fakeClients{})
	if err := s.UpdateConfig(context.Background(), validConfig); err != nil {
		t.Fatalf("UpdateConfig() unexpected error: %v", err)
	}
	if _, err := s.SendMessage(context.Background(), "   ", "go", nil); err != nil {
		t.Fatalf("SendMessage() with blank text error = %v, want nil", err)
	}
	if got := activeClient(t, s).callCount(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}
}

func TestUpdateConfigBlankProviderUnsupported(t *testing.T) {
	s := newTestService(t, &fakeClients{})
	err := s.UpdateConfig(context.Background(), provider.Config{Provider: " ", APIKey: "k", Model: "m"})
	if !errors.Is(err, provider.ErrUnsupportedProvider) {
		t.Fatalf("UpdateConfig() error = %v, want ErrUnsupportedProvider", err)
	}
	if _, ok := s.Session(); ok {
		t.Error("failed UpdateConfig configured a session")
	}
}

func TestSendMessageUpstreamErrorUnchanged(t *testing.T) {
	upErr := &provider.UpstreamError{Provider: "openai", StatusCode: 429, Err: errors.New("rate limited")}
	s := newTestService(t, &fakeClients{})
	if err := s.UpdateConfig(context.Background(), validConfig); err != nil {
		t.Fatalf("UpdateConfig() unexpected error: %v", err)
	}
	activeClient(t, s).err = upErr
	before := s.current.Load()

	_, err := s.SendMessage(context.Background(), "q", "go", nil)
	if err != upErr {
		t.Errorf("SendMessage() error = %v, want the provider's error unchanged", err)
	}
	if s.current.Load() != before {
		t.Error("failed SendMessage changed the session")
	}
}

// TestSendMessageSystemRoleMapping drives a real anthropic client through the
// service and checks the wire request.
func TestSendMessageSystemRoleMapping(t *testing.T) {
	type wireMessage struct {
		Role    string `json:"role"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	var got struct {
		System   any           `json:"system"`
		Messages []wireMessage `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-3-opus-20240229",
			"content":     []map[string]any{{"type": "text", "text": "Loop.\n```python\nfor x in y: pass\n```"}},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 1, "output_tokens": 1},
		})
	}))
	defer srv.Close()

	s := New(registry.New(provider.Endpoints{Anthropic: srv.URL}), nil)
	err := s.UpdateConfig(context.Background(), provider.Config{Provider: "anthropic", APIKey: "k", Model: "claude-3-opus-20240229"})
	if err != nil {
		t.Fatalf("UpdateConfig() unexpected error: %v", err)
	}

	res, err := s.SendMessage(context.Background(), "c", "python", []provider.Message{
		{Role: provider.RoleUser, Content: "a"},
		{Role: provider.RoleAssistant, Content: "b"},
	})
	if err != nil {
		t.Fatalf("SendMessage() unexpected error: %v", err)
	}
	if res.Explanation != "Loop." || res.Code != "for x in y: pass" {
		t.Errorf("SendMessage() = %+v", res)
	}

	if got.System != nil {
		t.Errorf("system field = %v, want absent", got.System)
	}
	wantRoles := []string{"user", "user", "assistant", "user"}
	wantText := []string{prompt.SystemPrompt("python"), "a", "b", "c"}
	if len(got.Messages) != len(wantRoles) {
		t.Fatalf("messages = %d, want %d", len(got.Messages), len(wantRoles))
	}
	for i, m := range got.Messages {
		if m.Role != wantRoles[i] {
			t.Errorf("message[%d].role = %q, want %q", i, m.Role, wantRoles[i])
		}
		if len(m.Content) != 1 || m.Content[0].Text != wantText[i] {
			t.Errorf("message[%d].content = %+v, want %q", i, m.Content, wantText[i])
		}
	}
}

func TestConcurrentSendAndUpdate(t *testing.T) {
	f := &fakeClients{}
	s := newTestService(t, f)
	ctx := context.Background()
	configs := []provider.Config{
		{Provider: "openai", APIKey: "k", Model: "gpt-4"},
		{Provider: "anthropic", APIKey: "k", Model: "claude-3-opus-20240229"},
	}
	if err := s.UpdateConfig(ctx, configs[0]); err != nil {
		t.Fatalf("UpdateConfig() unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := s.UpdateConfig(ctx, configs[i%2]); err != nil {
				t.Errorf("UpdateConfig() unexpected error: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := s.SendMessage(ctx, "q", "go", nil); err != nil {
				t.Errorf("SendMessage() unexpected error: %v", err)
			}
			sess := s.current.Load()
			if rp := sess.client.(*recordingProvider); rp.cfg != sess.cfg {
				t.Errorf("session client built for %+v, config is %+v", rp.cfg, sess.cfg)
			}
		}()
	}
	wg.Wait()
}

func TestModels(t *testing.T) {
	got := Models()
	for _, name := range provider.Names() {
		if len(got[name]) == 0 {
			t.Errorf("Models() has no entry for %s", name)
		}
	}
	if got["openai"][0] != "Examples: gpt-4, gpt-3.5-turbo, gpt-4-turbo" {
		t.Errorf("openai = %q", got["openai"])
	}
	got["openai"][0] = "mutated"
	if Models()["openai"][0] == "mutated" {
		t.Error("Models() exposes the shared catalogue")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{
		Message: "Invalid configuration",
		Details: map[string]string{"model": "Model name is required", "apiKey": "API key is required"},
	}
	want := "Invalid configuration (apiKey: API key is required; model: Model name is required)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
