package viewer

import (
	"fmt"
	"os/exec"
	"runtime"
)

// command returns the program and arguments that open path, using viewer
// when one is configured and the desktop default otherwise.
func command(goos, viewer, path string) (string, []string) {
	if viewer != "" {
		return viewer, []string{path}
	}
	switch goos {
	case "windows":
		return "cmd", []string{"/C", "start", "", path}
	case "darwin":
		return "open", []string{path}
	default:
		return "xdg-open", []string{path}
	}
}

// Target picks the workbook to show after an export: the configured
// consumer workbook when set, the exported file otherwise.
func Target(configured, exported string) string {
	if configured != "" {
		return configured
	}
	return exported
}

// Open starts the viewer for path and returns without waiting for it.
func Open(viewer, path string) error {
	name, args := command(runtime.GOOS, viewer, path)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s with %s: %w", path, name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
