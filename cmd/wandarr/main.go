// Package main provides the CLI entry point for wandarr.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mlsmithjr/wandarr-go/internal/cluster"
	"github.com/mlsmithjr/wandarr-go/internal/config"
	"github.com/mlsmithjr/wandarr-go/internal/discovery"
	"github.com/mlsmithjr/wandarr-go/internal/logging"
	"github.com/mlsmithjr/wandarr-go/internal/mediainfo"
	"github.com/mlsmithjr/wandarr-go/internal/probe"
	"github.com/mlsmithjr/wandarr-go/internal/runtimeopts"
	"github.com/mlsmithjr/wandarr-go/internal/selfupdate"
	"github.com/mlsmithjr/wandarr-go/internal/statussink"
)

const appName = "wandarr"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "encode":
		if err := runEncode(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, selfupdate.CurrentVersion)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - distributed video transcoding dispatcher

Usage:
  %s <command> [options]

Commands:
  encode    Dispatch video files to the configured cluster for transcoding
  version   Print version information
  help      Show this help message

Run '%s encode --help' for encode command options.
`, appName, appName, appName)
}

type encodeArgs struct {
	inputPath  string
	template   string
	configPath string
	hostsOnly  string
	logDir     string
	verbose    bool
	noLog      bool
	dryRun     bool
	keepSource bool
	showInfo   bool
	ffprobe    string
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Dispatch video files to the cluster for transcoding.

Usage:
  %s encode [options]

Required:
  -i, --input <PATH>       Input video file or directory of video files
  -t, --template <NAME>    Template name from the cluster config

Options:
  -c, --config <PATH>      Cluster config file (default ~/.wandarr.yml)
  -l, --log-dir <PATH>     Log directory (defaults to ~/.local/state/wandarr/logs)
  --hosts <NAMES>          Comma-separated host names to restrict scheduling to
  -v, --verbose            Enable verbose output
  --dry-run                Probe and log but never invoke the encoder
  --keep-source            Never delete or replace the source file
  --show-info              Print media info for the input and exit
  --ffprobe <PATH>         Path to the ffprobe binary (default "ffprobe")
  --no-log                 Disable run log file creation
`, appName)
	}

	var ea encodeArgs
	fs.StringVar(&ea.inputPath, "i", "", "Input video file or directory")
	fs.StringVar(&ea.inputPath, "input", "", "Input video file or directory")
	fs.StringVar(&ea.template, "t", "", "Template name")
	fs.StringVar(&ea.template, "template", "", "Template name")
	fs.StringVar(&ea.configPath, "c", "", "Cluster config file")
	fs.StringVar(&ea.configPath, "config", "", "Cluster config file")
	fs.StringVar(&ea.hostsOnly, "hosts", "", "Comma-separated host names to restrict to")
	fs.StringVar(&ea.logDir, "l", "", "Log directory")
	fs.StringVar(&ea.logDir, "log-dir", "", "Log directory")
	fs.BoolVar(&ea.verbose, "v", false, "Enable verbose output")
	fs.BoolVar(&ea.verbose, "verbose", false, "Enable verbose output")
	fs.BoolVar(&ea.noLog, "no-log", false, "Disable log file creation")
	fs.BoolVar(&ea.dryRun, "dry-run", false, "Probe and log but never invoke the encoder")
	fs.BoolVar(&ea.keepSource, "keep-source", false, "Never delete or replace the source file")
	fs.BoolVar(&ea.showInfo, "show-info", false, "Print media info and exit")
	fs.StringVar(&ea.ffprobe, "ffprobe", "ffprobe", "Path to the ffprobe binary")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if ea.inputPath == "" {
		return fmt.Errorf("input path is required (-i/--input)")
	}
	if ea.template == "" && !ea.showInfo {
		return fmt.Errorf("template is required (-t/--template)")
	}

	return executeEncode(ea)
}

func executeEncode(ea encodeArgs) error {
	inputPath, err := filepath.Abs(ea.inputPath)
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("input path does not exist: %s", inputPath)
	}

	var filesToProcess []string
	if inputInfo.IsDir() {
		filesToProcess, err = discovery.FindVideoFiles(inputPath)
		if err != nil {
			return fmt.Errorf("failed to discover video files: %w", err)
		}
	} else {
		filesToProcess = []string{inputPath}
	}

	logDir := ea.logDir
	if logDir == "" {
		logDir = logging.DefaultLogDir()
	}
	logger, err := logging.Setup(logDir, ea.verbose, ea.noLog, os.Args)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logger != nil {
		defer func() { _ = logger.Close() }()
	}

	prober := probe.New(ea.ffprobe)

	if ea.showInfo {
		var infos []*mediainfo.MediaInfo
		for _, f := range filesToProcess {
			mi, err := prober.Probe(f)
			if err != nil {
				fmt.Fprintf(os.Stderr, "probe failed for %s: %v\n", f, err)
				continue
			}
			infos = append(infos, mi)
		}
		mediainfo.ShowInfo(os.Stdout, infos)
		return nil
	}

	configPath := ea.configPath
	if configPath == "" {
		home, _ := os.UserHomeDir()
		configPath = filepath.Join(home, ".wandarr.yml")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load cluster config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid cluster config: %w", err)
	}

	opts := runtimeopts.Options{
		Verbose:    ea.verbose,
		KeepSource: ea.keepSource,
		DryRun:     ea.dryRun,
		ShowInfo:   ea.showInfo,
		SSHPath:    cfg.SSHPath,
		SCPPath:    cfg.SCPPath,
		Logger:     logger.Logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn().Msg("interrupt received, cancelling run")
		cancel()
	}()

	filter := cluster.AllHosts
	if ea.hostsOnly != "" {
		allowed := make(map[string]bool)
		for _, name := range strings.Split(ea.hostsOnly, ",") {
			allowed[strings.TrimSpace(name)] = true
		}
		filter = func(name string) bool { return allowed[name] }
	}

	sink := statussink.Sink(statussink.NewConsole())
	clu, err := cluster.New(ctx, cfg, opts, prober, sink, filter)
	if err != nil {
		return fmt.Errorf("failed to build cluster: %w", err)
	}

	for _, f := range filesToProcess {
		if _, err := clu.Enqueue(f, ea.template); err != nil {
			logger.Error().Str("file", f).Err(err).Msg("failed to enqueue")
			continue
		}
	}

	updateCh := selfupdate.CheckAsync(ctx, selfupdate.NewHTTPChecker())

	runErr := clu.Run(ctx)

	select {
	case latest := <-updateCh:
		if notice := selfupdate.NotifyIfNewer(latest); notice != "" {
			fmt.Fprintln(os.Stderr, notice)
		}
	case <-time.After(200 * time.Millisecond):
	}

	if !ea.dryRun {
		cluster.FormatStats(os.Stdout, clu.DumpStats())
	}

	return runErr
}
