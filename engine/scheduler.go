package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/drummonds/localpdf/metrics"
	"github.com/drummonds/localpdf/scratch"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// InitializeSchedules starts the cron jobs: the scratch sweeper and, with a job log, the job pruner.
// The caller stops the returned scheduler on shutdown.
func (serverHandler *ServerHandler) InitializeSchedules() *cron.Cron {
	cfg := serverHandler.ServerConfig
	c := cron.New()
	chain := cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)) //ensure we don't kick off another if old one is still running

	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 10
	}
	sweepJob := chain.Then(cron.FuncJob(serverHandler.sweepScratch))
	if _, err := c.AddJob(fmt.Sprintf("@every %dm", interval), sweepJob); err != nil {
		Logger.Error("Unable to schedule scratch sweeper", "error", err)
	}
	Logger.Info("Adding scratch sweeper", "interval_minutes", interval, "max_age_minutes", cfg.ScratchMaxAge)

	if serverHandler.DB != nil && cfg.JobRetentionHours > 0 {
		pruneJob := chain.Then(cron.FuncJob(serverHandler.pruneJobs))
		if _, err := c.AddJob("@hourly", pruneJob); err != nil {
			Logger.Error("Unable to schedule job pruner", "error", err)
		}
		Logger.Info("Adding job pruner", "retention_hours", cfg.JobRetentionHours)
	}

	c.Start()
	return c
}

// sweepScratch removes scope directories older than the configured age
func (serverHandler *ServerHandler) sweepScratch() {
	maxAge := time.Duration(serverHandler.ServerConfig.ScratchMaxAge) * time.Minute
	removed, err := scratch.Sweep(serverHandler.ServerConfig.ScratchPath, maxAge)
	if removed > 0 {
		metrics.ScopesSwept.Add(float64(removed))
		Logger.Info("Removed stale scratch scopes", "count", removed)
	}
	if err != nil {
		Logger.Error("Scratch sweep failed", "path", serverHandler.ServerConfig.ScratchPath, "error", err)
	}
}

// pruneJobs deletes finished jobs past the retention window
func (serverHandler *ServerHandler) pruneJobs() {
	retention := time.Duration(serverHandler.ServerConfig.JobRetentionHours) * time.Hour
	deleted, err := serverHandler.DB.DeleteOldJobs(retention)
	if err != nil {
		Logger.Error("Job pruning failed", "error", err)
		return
	}
	if deleted > 0 {
		Logger.Info("Pruned old conversion jobs", "count", deleted)
	}
}
