// Package setup runs the interactive first-run configuration: choosing a
// provider, a model and a credential, then writing the config file.
package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hpkotak/codebud/internal/chat"
	"github.com/hpkotak/codebud/internal/config"
	"github.com/hpkotak/codebud/internal/platform"
	"github.com/hpkotak/codebud/internal/provider"
	"github.com/ollama/ollama/api"
)

// Package-level function variables for testability.
var (
	loadConfig = config.Load
	saveConfig = config.Save
)

// Run executes the interactive setup flow.
// in and out are injectable for testability.
func Run(in io.Reader, out io.Writer) error {
	_, _ = fmt.Fprintln(out, "codebud Setup")
	_, _ = fmt.Fprintln(out, "=============")
	_, _ = fmt.Fprintf(out, "Platform: %s\n\n", platform.OS())

	cfg, err := loadConfig()
	if err != nil {
		if !errors.Is(err, config.ErrNotFound) {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = config.Default()
	}

	r := bufio.NewReader(in)

	name, err := selectProvider(r, out, cfg.Provider)
	if err != nil {
		return err
	}
	if name != provider.NormalizeName(cfg.Provider) {
		cfg.Model, cfg.APIKey = "", ""
	}
	cfg.Provider = name

	if name == provider.Ollama {
		if err := configureOllama(r, out, cfg); err != nil {
			return err
		}
	} else {
		if err := configureHosted(r, out, cfg); err != nil {
			return err
		}
	}

	cfg.Language = ask(r, out, "Default language", cfg.Language)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	_, _ = fmt.Fprintf(out, "\nConfig saved to %s\n", config.Path())
	_, _ = fmt.Fprintln(out, "Ready! Try: cb chat")
	return nil
}

func selectProvider(r *bufio.Reader, out io.Writer, current string) (string, error) {
	names := provider.Names()
	def := 1
	_, _ = fmt.Fprintln(out, "\nProviders:")
	for i, n := range names {
		if n == provider.NormalizeName(current) {
			def = i + 1
		}
		_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, n)
	}
	_, _ = fmt.Fprintf(out, "\nSelect provider [%d]: ", def)

	input := readLine(r)
	if input == "" {
		return names[def-1], nil
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(names) {
		return names[n-1], nil
	}
	if provider.Supported(input) {
		return provider.NormalizeName(input), nil
	}
	return "", fmt.Errorf("invalid selection: %s", input)
}

func configureHosted(r *bufio.Reader, out io.Writer, cfg *config.Config) error {
	if examples := chat.Models()[cfg.Provider]; len(examples) > 0 {
		_, _ = fmt.Fprintf(out, "  %s\n", examples[0])
	}
	cfg.Model = ask(r, out, "Model", cfg.Model)
	if cfg.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	hint := ""
	if cfg.APIKey != "" {
		hint = "keep current"
	}
	_, _ = fmt.Fprint(out, prompt("API key", hint))
	if key := readLine(r); key != "" {
		cfg.APIKey = key
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("%s requires an API key", cfg.Provider)
	}
	return nil
}

func configureOllama(r *bufio.Reader, out io.Writer, cfg *config.Config) error {
	host := cfg.Endpoints.Ollama
	if host == "" {
		host = provider.DefaultOllamaHost
	}
	host = ask(r, out, "Ollama host", host)
	cfg.Endpoints.Ollama = host
	if cfg.APIKey == "" {
		cfg.APIKey = config.OllamaKey
	}

	if !isOllamaReachable(host) {
		_, _ = fmt.Fprintf(out, "[!!] Ollama is not reachable at %s. Start it with: ollama serve\n", host)
		_, _ = fmt.Fprintf(out, "     Not installed? %s\n", platform.OllamaInstallHint(platform.OS()))
		cfg.Model = ask(r, out, "Model", cfg.Model)
		if cfg.Model == "" {
			return fmt.Errorf("model cannot be empty")
		}
		return nil
	}
	_, _ = fmt.Fprintln(out, "[ok] Ollama is running")

	client, err := ollamaClient(host)
	if err != nil {
		return err
	}
	model, err := selectModel(client, r, out)
	if err != nil {
		return err
	}
	cfg.Model = model
	return nil
}

func selectModel(client *api.Client, r *bufio.Reader, out io.Writer) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	models, err := client.List(ctx)
	if err != nil {
		return "", fmt.Errorf("listing models: %w", err)
	}

	if len(models.Models) == 0 {
		return pullRecommendedModel(client, r, out)
	}

	names := make([]string, len(models.Models))
	for i, m := range models.Models {
		names[i] = m.Name
	}
	sort.SliceStable(names, func(i, j int) bool { return codeModel(names[i]) && !codeModel(names[j]) })

	_, _ = fmt.Fprintln(out, "\nAvailable models:")
	for i, n := range names {
		_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, n)
	}
	_, _ = fmt.Fprint(out, "\nSelect default model [1]: ")

	input := readLine(r)

	idx := 0
	if input != "" {
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > len(names) {
			return "", fmt.Errorf("invalid selection: %s", input)
		}
		idx = n - 1
	}

	selected := names[idx]
	_, _ = fmt.Fprintf(out, "[ok] Selected: %s\n", selected)
	return selected, nil
}

// codeModel reports whether an Ollama model name looks code-tuned.
func codeModel(name string) bool {
	return strings.Contains(strings.ToLower(name), "code")
}

func pullRecommendedModel(client *api.Client, r *bufio.Reader, out io.Writer) (string, error) {
	_, _ = fmt.Fprintln(out, "\nNo models found. Pull a recommended model?")
	_, _ = fmt.Fprintln(out, "  1. qwen2.5-coder:7b  (code-tuned, ~5GB)")
	_, _ = fmt.Fprintln(out, "  2. llama3.2:3b       (fast, ~2GB)")
	_, _ = fmt.Fprintln(out, "  3. Skip")
	_, _ = fmt.Fprint(out, "\nSelect [1]: ")

	input := readLine(r)

	var model string
	switch input {
	case "", "1":
		model = "qwen2.5-coder:7b"
	case "2":
		model = "llama3.2:3b"
	case "3":
		return "", fmt.Errorf("no model selected. Pull a model manually with: ollama pull <model>")
	default:
		return "", fmt.Errorf("invalid selection: %s", input)
	}

	_, _ = fmt.Fprintf(out, "Pulling %s (this may take a few minutes)...\n", model)

	// Model pulls can be large (GBs).
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	err := client.Pull(ctx, &api.PullRequest{Model: model}, func(resp api.ProgressResponse) error {
		if resp.Total > 0 {
			pct := float64(resp.Completed) / float64(resp.Total) * 100
			_, _ = fmt.Fprintf(out, "\r  %.0f%% downloaded", pct)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("pulling model: %w", err)
	}
	_, _ = fmt.Fprintf(out, "\n[ok] %s ready\n", model)
	return model, nil
}

func ollamaClient(host string) (*api.Client, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parsing host URL: %w", err)
	}
	// No client timeout: pulls stream for minutes. Calls bound themselves with ctx.
	return api.NewClient(base, &http.Client{}), nil
}

func isOllamaReachable(host string) bool {
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(host)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ask prompts with a default and returns the answer, or def on empty input.
func ask(r *bufio.Reader, out io.Writer, label, def string) string {
	_, _ = fmt.Fprint(out, prompt(label, def))
	if v := readLine(r); v != "" {
		return v
	}
	return def
}

func prompt(label, def string) string {
	if def == "" {
		return label + ": "
	}
	return fmt.Sprintf("%s [%s]: ", label, def)
}

// readLine reads a single line from the reader, trimming whitespace.
func readLine(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
