package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandTilde replaces ~ or ~/path with the user's home directory.
// Does not support ~username syntax, just ~ for the current user.
func ExpandTilde(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path // Return unchanged if we can't get home
		}
		return filepath.Join(home, path[2:])
	}

	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}

	return path
}

// Expand replaces variables in a string with their values.
// Supported variables:
//   - ${USER} - current username
//   - ${HOME} - user's home directory
//
// Note: Does NOT expand ~ - use ExpandTilde for that.
func Expand(s string) string {
	if s == "" {
		return s
	}

	result := s

	if strings.Contains(result, "${USER}") {
		result = strings.ReplaceAll(result, "${USER}", getUser())
	}

	if strings.Contains(result, "${HOME}") {
		result = strings.ReplaceAll(result, "${HOME}", getHome())
	}

	return result
}

// getUser returns the current username for ${USER} expansion.
func getUser() string {
	// Try USER env var first (most common)
	if user := os.Getenv("USER"); user != "" {
		return user
	}

	// Try LOGNAME (POSIX standard)
	if user := os.Getenv("LOGNAME"); user != "" {
		return user
	}

	// Try USERNAME (Windows)
	if user := os.Getenv("USERNAME"); user != "" {
		return user
	}

	return "user"
}

// getHome returns the home directory for ${HOME} expansion.
func getHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}

	if home := os.Getenv("HOME"); home != "" {
		return home
	}

	return "~"
}
