package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/imamik/archer/internal/config"
	"github.com/imamik/archer/internal/executor"
	"github.com/imamik/archer/internal/logging"
	"github.com/imamik/archer/internal/metrics"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/provisioning/stages"
	"github.com/imamik/archer/internal/validate"
)

// InstallOptions holds the flags of the install command.
type InstallOptions struct {
	AnswersPath    string
	Overrides      map[string]string
	NonInteractive bool
	AssumeYes      bool
	Resume         bool
	DryRun         bool
	Only           []string
	ForceFresh     bool
	StateDir       string
	MetricsFile    string
	Verbose        bool
}

// Install gathers a session, builds the plan and executes it.
//
// The workflow:
//  1. Checks privileges and required tools (skipped for --dry-run)
//  2. Builds a confirmed session, from prompts or answers
//  3. Builds the plan, restricted by --only
//  4. On a fresh run, refuses a mounted target device
//  5. Refuses to overwrite an unfinished checkpoint unless resuming or --force-fresh
//  6. Saves the answers so --resume can rebuild the same plan
//  7. Runs or resumes the plan, with the TUI when stdout is a terminal
//  8. Writes the metrics file if requested
func Install(ctx context.Context, opts InstallOptions) error {
	stateDir := opts.StateDir
	if stateDir == "" {
		stateDir = config.DefaultStateDir()
	}

	useTUI := !opts.DryRun && isTerminal(os.Stdout)
	var console io.Writer = stderr
	if useTUI {
		console = nil
	}
	log, closeLog, err := newLogger(logging.Options{
		Console: console,
		Verbose: opts.Verbose,
		File:    config.LogPath(stateDir),
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	if !opts.DryRun {
		if err := checkPrivileges(); err != nil {
			return provisioning.NewError(provisioning.KindPreconditionNotMet, "check privileges", err)
		}
		if res := checkPrereqs(); res.HasErrors() {
			return provisioning.NewError(provisioning.KindPreconditionNotMet, "check prerequisites", res.Error())
		}
	}

	host := newHost()
	src := answersSource{
		path:        opts.AnswersPath,
		overrides:   opts.Overrides,
		interactive: !opts.NonInteractive && isTerminal(os.Stdin),
		assumeYes:   opts.AssumeYes || opts.DryRun,
	}
	if opts.Resume {
		// the answers were confirmed by the run being resumed
		src = answersSource{path: savedAnswers(opts.AnswersPath, stateDir), overrides: opts.Overrides, assumeYes: true}
	}

	s, err := buildSession(ctx, src, validate.New(host), log)
	if err != nil {
		return err
	}

	plan, err := selectPlan(s, opts.Only)
	if err != nil {
		return err
	}

	if opts.DryRun {
		return renderPlan(stdout, plan, OutputText)
	}

	store := newStore(stateDir)
	if !opts.Resume {
		if err := stages.DeviceIdle(ctx, host, s.Device()); err != nil {
			return provisioning.NewError(provisioning.KindPreconditionNotMet, "check target device", err)
		}
		if err := prepareFresh(store, opts.ForceFresh); err != nil {
			return err
		}
		answers := s.Answers()
		if err := writeAnswers(config.AnswersPath(stateDir), &answers); err != nil {
			return fmt.Errorf("failed to save answers for resume: %w", err)
		}
	}

	recorder := metrics.NewRecorder()
	base := provisioning.MultiObserver{provisioning.NewLogObserver(log), recorder}
	timeouts := config.LoadTimeouts()

	run := func(ctx context.Context, extra provisioning.Observer) error {
		e := executor.New(newRunner(), host, store,
			executor.WithLogger(log),
			executor.WithObserver(append(base, extra)),
			executor.WithConfig(executorConfig(timeouts)),
		)
		var res executor.RunResult
		if opts.Resume {
			res = e.Resume(ctx, plan)
		} else {
			res = e.Run(ctx, plan)
		}
		return res.Err
	}

	if useTUI {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		title := fmt.Sprintf("%s on %s", s.Hostname(), s.Device())
		err = runTUI(runCtx, title, plan, cancel, run)
	} else {
		err = run(ctx, nil)
	}

	if opts.MetricsFile != "" {
		if werr := recorder.WriteTextfile(opts.MetricsFile); werr != nil {
			log.Error(werr, "failed to write metrics", "path", opts.MetricsFile)
		}
	}

	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Installed %s on %s. Remove the install medium and reboot.\n", s.Hostname(), s.Device())
	return nil
}

// prepareFresh makes sure a fresh run does not silently discard progress.
func prepareFresh(store checkpointStore, force bool) error {
	cp, err := store.Load()
	if err != nil {
		if !force {
			return provisioning.NewError(provisioning.KindEnvironmentQueryFailed, "load checkpoint", err)
		}
		cp = nil
	}
	if cp != nil && !cp.Completed() && !force {
		return &provisioning.Error{
			Kind:       provisioning.KindPreconditionNotMet,
			Op:         "start install",
			Err:        errUnfinishedRun,
			Checkpoint: store.Location(),
		}
	}
	if force || cp != nil {
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear checkpoint: %w", err)
		}
	}
	return nil
}

// executorConfig maps environment timeouts onto the executor.
func executorConfig(t *config.Timeouts) executor.Config {
	cfg := executor.DefaultConfig()
	cfg.ActionTimeout = t.Action
	cfg.CompensationTimeout = t.Compensation
	cfg.MaxRetries = t.RetryMaxAttempts
	cfg.RetryInitialDelay = t.RetryInitialDelay
	if t.Workers > 0 {
		cfg.Workers = t.Workers
	}
	return cfg
}
