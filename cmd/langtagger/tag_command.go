package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"langtagger/internal/logging"
	"langtagger/internal/tagger"
)

type tagFlags struct {
	language string
	dryRun   bool
	debug    bool
	noCache  bool
	json     bool
}

func runTagging(cmd *cobra.Command, ctx *commandContext, root string, flags tagFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	started := time.Now()
	levelOverride := ""
	if flags.debug {
		levelOverride = "debug"
	}

	stderr := cmd.ErrOrStderr()
	var observer *progressObserver
	logOpts := []logging.RunOption{logging.ConsoleWriter(stderr)}
	if !flags.debug && !flags.json && shouldColorize(stderr) {
		observer = newProgressObserver(stderr)
		logOpts = append(logOpts, logging.ConsoleLevel("warn"))
	}

	logger, logPath, err := logging.NewFromConfig(cfg, levelOverride, runID, started, logOpts...)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if logPath != "" {
		if !flags.dryRun {
			logging.CleanupOldLogs(logger, cfg.Paths.LogDir, logging.RunLogPattern, cfg.Logging.RetentionDays, logPath)
		}
		logger.Debug("run log", logging.Path(logPath))
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if !flags.json {
		fmt.Fprintln(out, renderBanner(flags.dryRun, colorize))
	}

	opts := tagger.Options{
		Root:     root,
		Language: flags.language,
		DryRun:   flags.dryRun,
		NoCache:  flags.noCache,
		RunID:    runID,
		Config:   cfg,
		Logger:   logger,
	}
	if observer != nil {
		opts.Observer = observer
	}
	summary, runErr := tagger.Run(cmd.Context(), opts)
	if observer != nil {
		observer.finish()
	}
	if summary == nil {
		return runErr
	}

	if flags.json {
		if err := writeJSON(cmd, summary); err != nil {
			return err
		}
		return runErr
	}
	for _, folder := range summary.Folders {
		fmt.Fprintln(out, renderFolderLine(summary.Root, folder, colorize))
	}
	fmt.Fprintln(out, renderSummary(summary))
	if logPath != "" {
		fmt.Fprintf(out, "Run log: %s\n", logPath)
	}
	if summary.Skipped() > 0 && runErr == nil {
		fmt.Fprintln(out, renderStatusLine("Skipped items", statusWarn, fmt.Sprintf("%d (see log for details)", summary.Skipped()), colorize))
	}
	return runErr
}
