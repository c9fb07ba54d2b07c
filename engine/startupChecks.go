package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	if err := scratchDirectoryChecks(serverHandler.ServerConfig.ScratchPath); err != nil {
		return err
	}
	// scopes left behind by a previous process
	serverHandler.sweepScratch()
	ghostscriptChecks(serverHandler.ServerConfig.GhostscriptPath)
	return nil
}

// ghostscriptChecks only warns: every tool but pdf-to-pdfa works without Ghostscript
func ghostscriptChecks(path string) {
	if path == "" {
		Logger.Warn("Ghostscript not configured, pdf-to-pdfa will be unavailable")
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		Logger.Warn("Ghostscript executable not found, pdf-to-pdfa will fail", "path", path, "error", err)
		return
	}
	if info.IsDir() {
		Logger.Warn("Ghostscript path is a directory, not an executable, pdf-to-pdfa will fail", "path", path)
		return
	}
	if info.Mode()&0111 == 0 {
		Logger.Warn("Ghostscript file is not executable, pdf-to-pdfa will fail", "path", path, "mode", info.Mode())
		return
	}
	Logger.Info("Ghostscript executable found and validated, PDF/A enabled", "path", path)
}

// scratchDirectoryChecks ensures the scratch root exists and is writable
func scratchDirectoryChecks(path string) error {
	if path == "" {
		return errors.New("scratch path not configured")
	}

	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			Logger.Error("Error checking scratch directory", "path", path, "error", err)
			return err
		}
		Logger.Info("Creating scratch directory", "path", path)
		if err := os.MkdirAll(path, 0700); err != nil {
			Logger.Error("Failed to create scratch directory", "path", path, "error", err)
			return err
		}
	} else if !info.IsDir() {
		Logger.Error("Scratch path exists but is not a directory", "path", path)
		return fmt.Errorf("scratch path is not a directory: %s", path)
	}

	probe, err := os.CreateTemp(path, ".probe-*")
	if err != nil {
		Logger.Error("Scratch directory is not writable", "path", path, "error", err)
		return fmt.Errorf("scratch directory is not writable: %w", err)
	}
	probe.Close()
	os.Remove(probe.Name())

	Logger.Info("Scratch directory ready", "path", filepath.Clean(path))
	return nil
}
