package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/acquire"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/archive"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/config"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/gitrepo"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/notify"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/pdf"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/profile"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/publish"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/runlog"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/workflow"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if version != "dev" {
		cfg.Version = version
	}

	run, err := runlog.New(cfg.StateDir, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to set up run logging: %v", err)
	}
	defer run.Close()
	logger := run.Logger

	if cfg.IsDebug() {
		logger.Debug("starting", "config", cfg.String(), "version", cfg.Version)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := profile.LoadStore(cfg.ProfileDir)
	if err != nil {
		logger.Error("cannot load profiles", "dir", cfg.ProfileDir, "error", err)
		os.Exit(workflow.ExitFailed)
	}

	sel, err := resolveSelection(ctx, cfg, store)
	if err != nil {
		logger.Error("cannot resolve run inputs", "error", err)
		os.Exit(workflow.ExitFailed)
	}
	logger.Info("run inputs resolved", "plate", sel.Vehicle.Plate, "card", sel.Card.Name)

	processor := &workflow.Processor{
		Extractor:   pdf.NewChain(logger),
		Publisher:   buildPublisher(cfg, logger),
		Archiver:    archive.New(cfg.StateDir),
		Notifier:    buildNotifier(cfg, logger),
		Log:         logger,
		SkipPublish: cfg.SkipPublish,
	}

	req := acquire.Request{
		Vehicle:   sel.Vehicle,
		Card:      sel.Card,
		Address:   sel.Address,
		StartDate: formStartDate(time.Now()),
		Duration:  sel.Address.Duration,
		Headless:  cfg.Headless,
	}

	if cfg.Refetch {
		os.Exit(runRefetch(ctx, cfg, logger, processor, req))
	}
	os.Exit(runAcquisition(ctx, cfg, logger, processor, req))
}

// runAcquisition drives a full purchase through the outcome state machine.
func runAcquisition(ctx context.Context, cfg *config.Config, logger *slog.Logger, processor *workflow.Processor, req acquire.Request) int {
	if cfg.DriverCommand == "" {
		logger.Error("no driver command configured; set --drivercommand or use --refetch")
		return workflow.ExitFailed
	}

	driver := acquire.NewScriptedDriver(cfg.DriverCommand, cfg.ElementWait, logger)
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Warn("driver did not close cleanly", "error", err)
		}
	}()

	machine := &workflow.Machine{
		Driver:         driver,
		Finder:         pdf.NewFinder(cfg.DownloadDir, cfg.MaxFileSize),
		Log:            logger,
		DryRun:         cfg.DryRun,
		NonInteractive: cfg.NonInteractive,
		DocumentWait:   cfg.DocumentWait,
	}

	outcome := machine.Run(ctx, req)
	return processor.Process(ctx, outcome, req)
}

// runRefetch recovers the receipt of an already-acquired permit and feeds it
// through the same parsing and publication path as a fresh purchase.
func runRefetch(ctx context.Context, cfg *config.Config, logger *slog.Logger, processor *workflow.Processor, req acquire.Request) int {
	var fetcher acquire.Fetcher
	switch {
	case cfg.LookupURL != "" && cfg.DriverCommand != "":
		driver := acquire.NewScriptedDriver(cfg.DriverCommand, cfg.ElementWait, logger)
		defer driver.Close()
		fetcher = acquire.WithFallback(
			acquire.NewDirectFetcher(cfg.LookupURL, cfg.DownloadDir, logger), driver, logger)
	case cfg.LookupURL != "":
		fetcher = acquire.NewDirectFetcher(cfg.LookupURL, cfg.DownloadDir, logger)
	case cfg.DriverCommand != "":
		driver := acquire.NewScriptedDriver(cfg.DriverCommand, cfg.ElementWait, logger)
		defer driver.Close()
		fetcher = driver
	default:
		logger.Error("refetch needs --lookupurl or --drivercommand")
		return workflow.ExitFailed
	}

	path, err := fetcher.FetchReceipt(ctx, req.Vehicle.Plate)
	if err != nil {
		logger.Error("receipt re-fetch failed", "plate", req.Vehicle.Plate, "error", err)
		return workflow.ExitFailed
	}

	if err := pdf.NewValidator(cfg.MaxFileSize).ValidateFile(path); err != nil {
		logger.Error("re-fetched document is not a usable PDF", "path", path, "error", err)
		return workflow.ExitFailed
	}

	return processor.Process(ctx, workflow.Outcome{
		State:        workflow.StateDocumentReady,
		DocumentPath: path,
	}, req)
}

// resolveSelection picks the vehicle, card and applicant for this run. Flags
// resolve silently; without them an attended run prompts, an unattended run
// fails rather than hang.
func resolveSelection(ctx context.Context, cfg *config.Config, store *profile.Store) (profile.Selection, error) {
	var resolver profile.Resolver
	if cfg.Plate != "" || cfg.CardName != "" || cfg.NonInteractive {
		resolver = &profile.FlagResolver{Store: store, Plate: cfg.Plate, CardName: cfg.CardName}
	} else {
		resolver = &profile.PromptResolver{Store: store, In: os.Stdin, Out: os.Stdout}
	}
	return resolver.Resolve(ctx)
}

// buildPublisher assembles the git publication pipeline. With --skip-publish
// the processor never calls it, but the wiring stays uniform.
func buildPublisher(cfg *config.Config, logger *slog.Logger) workflow.Publisher {
	return publish.New(gitrepo.NewCLI(cfg.RepoPath), publish.Options{
		RepoPath:   cfg.RepoPath,
		Branch:     cfg.RepoBranch,
		RecordFile: cfg.RecordFile,
		LedgerFile: cfg.LedgerFile,
		Token:      cfg.Token(),
	}, logger)
}

// buildNotifier always includes the run log; email joins when configured.
func buildNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	notifiers := notify.Multi{&notify.LogNotifier{Log: logger}}
	if cfg.MailConfigured() {
		notifiers = append(notifiers, &notify.EmailNotifier{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.MailFrom,
			To:   cfg.MailTo,
		})
	}
	return notifiers
}

// formStartDate renders today the way the permit form's date field expects.
func formStartDate(now time.Time) string {
	return fmt.Sprintf("%d/%d/%d", int(now.Month()), now.Day(), now.Year())
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Toronto Parking Pass Buyer\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
