package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hnolivos/arbitrage-scanner/internal/config"
	"github.com/hnolivos/arbitrage-scanner/internal/fetch"
	"github.com/hnolivos/arbitrage-scanner/internal/logging"
	"github.com/hnolivos/arbitrage-scanner/internal/progress"
	"github.com/hnolivos/arbitrage-scanner/internal/scan"
)

// NewScanCmd creates the scan command for one-shot batches.
func NewScanCmd() *cobra.Command {
	var (
		file    string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "scan [urls...]",
		Short: "Scan a batch of URLs and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if file != "" {
				fromFile, err := readURLFile(file)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs given: pass them as arguments or via --file")
			}
			return runScan(urls, workers)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File with one URL per line")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Override SCANNER_WORKERS")

	return cmd
}

func runScan(urls []string, workers int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if workers > 0 {
		cfg.Scanner.MaxWorkers = workers
	}

	logger := logging.New(cfg.Logging)

	fetcher, cleanup, err := fetch.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize fetcher: %w", err)
	}
	defer cleanup()

	tracker := progress.NewTracker(cfg.Scanner.LogBuffer)
	orchestrator := scan.NewOrchestrator(fetcher, tracker, cfg.Scanner.MaxWorkers, logger)

	items := make([]scan.WorkItem, len(urls))
	for i, url := range urls {
		items[i] = scan.WorkItem{
			ID:        fmt.Sprintf("cli:%d", i),
			URL:       url,
			Transform: titleTransform,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bar := progressbar.NewOptions(len(items),
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
	)
	stopBar := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopBar:
				return
			case <-ticker.C:
				bar.Set(tracker.Snapshot().Completed)
			}
		}
	}()

	report, err := orchestrator.Run(ctx, items)
	close(stopBar)
	if err != nil {
		return err
	}
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	printReport(report)
	return nil
}

func printReport(report *scan.Report) {
	fmt.Printf("Total:      %d\n", report.Total)
	fmt.Printf("Succeeded:  %d\n", report.Succeeded)
	fmt.Printf("Failed:     %d\n", report.Failed)
	fmt.Printf("Elapsed:    %.1fs\n", report.Elapsed.Seconds())
	fmt.Printf("Throughput: %.2f pages/s\n", report.Throughput)

	if report.Failed > 0 {
		fmt.Println("\nFailed URLs:")
		for _, r := range report.Results {
			if !r.Success {
				fmt.Printf("  - %s: %s\n", r.URL, r.Error)
			}
		}
	}
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open url file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read url file: %w", err)
	}

	return urls, nil
}
