package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/theckman/yacspin"

	"github.com/pspoerri/isiscam/internal/config"
	"github.com/pspoerri/isiscam/internal/isis"
	"github.com/pspoerri/isiscam/internal/jobs"
	"github.com/pspoerri/isiscam/internal/lronac"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// ISIS programs the pipeline runs.
var isisCommands = []string{
	"lronac2isis", "spiceinit", "spicefit", "lronaccal", "lronacecho",
	"noproj", "handmos", "cubenorm",
}

func main() {
	var (
		configPath   string
		threads      int
		keep         bool
		stopAtNoProj bool
		retries      int
		logDir       string
		jitreg       string
		verbose      bool
		progress     string
		showVersion  bool
	)

	flag.StringVar(&configPath, "config", config.FileName, "Configuration file")
	flag.IntVar(&threads, "threads", 0, "Number of concurrent ISIS jobs (default: from config)")
	flag.BoolVar(&keep, "keep", false, "Keep intermediate files")
	flag.BoolVar(&stopAtNoProj, "stop-at-no-proj", false, "Stop after calibration, before noproj")
	flag.IntVar(&retries, "retries", -1, "Extra attempts for a failing job (default: from config)")
	flag.StringVar(&logDir, "log-dir", "", "Directory for lronacjitreg row logs (default: next to the cubes)")
	flag.StringVar(&jitreg, "jitreg", "lronacjitreg", "lronacjitreg executable")
	flag.BoolVar(&verbose, "verbose", false, "Log every command instead of showing progress")
	flag.StringVar(&progress, "progress", "spinner", "Progress display: spinner, bar or none")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lronac2mosaic [flags] <input-dir-or-IMG-files...>\n\n")
		fmt.Fprintf(os.Stderr, "Process LRO NAC EDR images into normalized left/right mosaics with ISIS:\n")
		fmt.Fprintf(os.Stderr, "lronac2isis, spiceinit/spicefit, lronaccal, lronacecho, noproj,\n")
		fmt.Fprintf(os.Stderr, "lronacjitreg, handmos and cubenorm.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("lronac2mosaic %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	switch progress {
	case "spinner", "bar", "none":
	default:
		log.Fatalf("Unknown -progress %q (want spinner, bar or none)", progress)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}
	if threads > 0 {
		cfg.Threads = threads
	}
	if retries >= 0 {
		cfg.Retries = retries
	}
	cfg.Keep = cfg.Keep || keep

	imgs, err := collectIMGs(flag.Args())
	if err != nil {
		log.Fatalf("Collecting input files: %v", err)
	}
	if len(imgs) == 0 {
		log.Fatal("No .IMG files found in the specified inputs")
	}

	v, err := lronac.ISISVersion(cfg.ISISRoot)
	if err != nil {
		log.Fatalf("ISIS: %v", err)
	}
	if err := jobs.LookPath(append(isisCommands, jitreg)...); err != nil {
		log.Fatalf("ISIS: %v", err)
	}
	reg, err := cfg.Registry()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("lronac2mosaic %s (commit %s, built %s)\n", version, commit, buildDate)
	fmt.Printf("  %-14s %s\n", "ISIS:", v)
	fmt.Printf("  %-14s %d\n", "Threads:", cfg.Threads)
	fmt.Printf("  %-14s %d\n", "Retries:", cfg.Retries)
	fmt.Printf("  %-14s %v\n", "Keep:", cfg.Keep)
	fmt.Printf("  %-14s %d file(s)\n", "Input:", len(imgs))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool := &jobs.Pool{Workers: cfg.Threads, Retries: cfg.Retries}
	p := &lronac.Pipeline{
		Pool:         pool,
		Keep:         cfg.Keep,
		StopAtNoProj: stopAtNoProj,
		LogDir:       logDir,
		Jitreg:       jitreg,
		Cameras:      isis.NewOpener(reg),
	}

	var (
		spinner *yacspin.Spinner
		bar     *jobs.ProgressBar
	)
	switch {
	case verbose:
		logger := log.New(os.Stderr, "", log.LstdFlags)
		pool.Logger = logger
		p.Logger = logger
	case progress == "bar":
		p.Stage = func(name string) {
			if bar != nil {
				bar.Finish()
			}
			bar = jobs.NewProgressBar(os.Stderr, fmt.Sprintf("%-10s", name), 500*time.Millisecond)
			pool.Progress = bar.Update
		}
	case progress == "spinner":
		spinner, err = yacspin.New(yacspin.Config{
			Frequency:         100 * time.Millisecond,
			CharSet:           yacspin.CharSets[14],
			Suffix:            " ",
			SuffixAutoColon:   true,
			Message:           "starting",
			StopCharacter:     "✓",
			StopColors:        []string{"fgGreen"},
			StopFailCharacter: "✗",
			StopFailColors:    []string{"fgRed"},
		})
		if err != nil {
			log.Fatalf("Spinner: %v", err)
		}
		p.Stage = func(name string) {
			spinner.Suffix(" " + name)
			spinner.Message("")
		}
		pool.Progress = func(done, total int) {
			spinner.Message(fmt.Sprintf("%d/%d", done, total))
		}
		if err := spinner.Start(); err != nil {
			log.Fatalf("Spinner: %v", err)
		}
	}

	start := time.Now()
	res, err := p.Run(ctx, imgs)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		if spinner != nil {
			spinner.StopFailMessage(err.Error())
			spinner.StopFail()
		}
		log.Fatalf("lronac2mosaic: %v", err)
	}
	if spinner != nil {
		spinner.Suffix(" finished")
		spinner.Message("")
		spinner.Stop()
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	if stopAtNoProj {
		fmt.Printf("Done: %d calibrated cube(s) in %v\n", len(res.Cubes), elapsed)
		return
	}
	for _, out := range res.Normalized {
		size := int64(0)
		if fi, err := os.Stat(out); err == nil {
			size = fi.Size()
		}
		fmt.Printf("  %s (%s)\n", out, humanSize(size))
	}
	fmt.Printf("Done: %d mosaic(s) in %v\n", len(res.Normalized), elapsed)
}

// collectIMGs resolves input paths to a list of .IMG files.
func collectIMGs(paths []string) ([]string, error) {
	var result []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if info.IsDir() {
			entries, err := os.ReadDir(p)
			if err != nil {
				return nil, fmt.Errorf("readdir %s: %w", p, err)
			}
			for _, e := range entries {
				if !e.IsDir() && isIMG(e.Name()) {
					result = append(result, filepath.Join(p, e.Name()))
				}
			}
		} else if isIMG(p) {
			result = append(result, p)
		}
	}
	return result, nil
}

func isIMG(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".img")
}

func humanSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
