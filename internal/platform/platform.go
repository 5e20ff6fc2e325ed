// Package platform provides OS detection helpers for setup.
package platform

import "runtime"

// OS returns the operating system name (e.g., "darwin", "linux").
func OS() string {
	return runtime.GOOS
}

// OllamaInstallHint returns the command that installs Ollama on goos, or a
// pointer to the download page when there is no one-line install.
func OllamaInstallHint(goos string) string {
	switch goos {
	case "darwin":
		return "brew install ollama"
	case "linux":
		return "curl -fsSL https://ollama.com/install.sh | sh"
	default:
		return "download it from https://ollama.com/download"
	}
}
