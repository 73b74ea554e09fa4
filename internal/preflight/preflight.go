package preflight

import (
	"context"

	"docent/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// minFreeBytes is the free space below which SQLite writes become risky.
const minFreeBytes = 64 << 20

// RunLocal executes the filesystem checks, which need no network access.
func RunLocal(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckFreeSpace("Data volume", cfg.Paths.DataDir, minFreeBytes),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	return results
}

// RunAll executes the local checks plus the registry, vision model, and sheet
// checks. The sheet is only checked when registry.sheet_url is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := RunLocal(cfg)
	results = append(results, CheckRegistry(ctx, cfg.RegistryPath(), cfg.Registry.SampleFallback))
	results = append(results, CheckLLM(ctx, "Vision model", cfg.GetLLM()))
	if cfg.Registry.SheetURL != "" {
		results = append(results, CheckSheet(ctx, cfg.Registry.SheetURL))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
