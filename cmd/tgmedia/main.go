// Command tgmedia downloads media from telegram channels and groups,
// with ledger-based resume, and extracts channel links into a JSON
// report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"tgmedia/internal/config"
	"tgmedia/internal/downloader"
	"tgmedia/internal/ledger"
	"tgmedia/internal/links"
	"tgmedia/internal/logger"
	"tgmedia/internal/media"
	"tgmedia/internal/telegram"
)

func main() {
	var (
		channel       = flag.String("channel", "", "channel username, t.me link or numeric id")
		mediaType     = flag.String("type", "all", "media type: images|videos|pdfs|zips|documents|all")
		limit         = flag.Int("limit", 2000, "maximum number of messages to fetch")
		batchSize     = flag.Int("batch-size", 0, "concurrent downloads per batch (default from config)")
		output        = flag.String("output", "", "output directory (default from config)")
		dryRun        = flag.Bool("dry-run", false, "show what would be downloaded without downloading")
		resume        = flag.Bool("resume", true, "consult previous download state; false starts fresh")
		extractLinks  = flag.Bool("extract-links", false, "extract channel links instead of downloading media")
		extractOutput = flag.String("extract-output", "extracted_links.json", "output file for extracted links")
		extractLimit  = flag.Int("extract-limit", 1000, "message limit for link extraction")
		configPath    = flag.String("config", "config.yaml", "path to config file")
	)
	flag.Parse()

	// .env is optional; the environment itself may carry the credentials
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintln(os.Stderr, "error: init logger:", err)
		os.Exit(1)
	}
	log := logger.Get()

	if err := cfg.ValidateCredentials(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if *channel == "" {
		fmt.Fprintln(os.Stderr, "error: -channel is required")
		flag.Usage()
		os.Exit(1)
	}

	mt, err := media.ParseType(*mediaType)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	manager := telegram.NewManager(cfg, log)
	if err := manager.Connect(ctx); err != nil {
		log.Error().Err(err).Msg("could not connect to telegram")
		os.Exit(1)
	}
	defer manager.Stop()
	client := manager.Client()

	if *extractLinks {
		if err := runExtraction(ctx, client, log, *channel, *extractLimit, *extractOutput); err != nil {
			log.Error().Err(err).Msg("link extraction failed")
			os.Exit(1)
		}
		return
	}

	if err := runDownload(ctx, client, cfg, log, downloadOptions{
		channel:   *channel,
		mediaType: mt,
		limit:     *limit,
		batchSize: *batchSize,
		output:    *output,
		dryRun:    *dryRun,
		resume:    *resume,
	}); err != nil {
		log.Error().Err(err).Msg("download failed")
		os.Exit(1)
	}
}

type downloadOptions struct {
	channel   string
	mediaType media.Type
	limit     int
	batchSize int
	output    string
	dryRun    bool
	resume    bool
}

func runDownload(ctx context.Context, client *telegram.Client, cfg *config.Config, log *logger.Logger, opts downloadOptions) error {
	channel, err := client.ResolveChannel(ctx, opts.channel)
	if err != nil {
		return err
	}
	log.Info().Str("channel", channel.Title).Msg("fetching media messages")

	var msgs []*telegram.Message
	err = client.IterMessages(ctx, channel, telegram.IterOptions{
		Limit:  opts.limit,
		Filter: opts.mediaType.ServerFilter(),
	}, func(msg *telegram.Message) error {
		if msg.HasMedia() {
			msgs = append(msgs, msg)
		}
		return nil
	})
	if err != nil {
		return err
	}

	msgs = media.Filter(msgs, opts.mediaType)
	msgs = applySizeFilters(msgs, cfg.Filters)
	if len(msgs) == 0 {
		fmt.Println(color.YellowString("no matching media messages found"))
		return nil
	}
	log.Info().Int("count", len(msgs)).Msg("media messages selected")

	if opts.dryRun {
		fmt.Println(color.YellowString("dry run mode - no files will be downloaded"))
		downloader.DryRun(msgs, os.Stdout)
		return nil
	}

	var led *ledger.Ledger
	if opts.resume {
		led = ledger.Load(cfg.Download.StateFile, log)
	} else {
		led = ledger.New(cfg.Download.StateFile, log)
	}

	destDir := buildOutputPath(opts.output, channel, opts.mediaType, cfg.Download)
	fmt.Println(color.CyanString("downloading to: %s", destDir))

	svc := downloader.NewService(client, led, downloader.NewConsoleReporter(os.Stdout), log)
	stats, err := svc.Run(ctx, msgs, destDir, downloader.Options{
		BatchSize:        pickBatchSize(opts.batchSize, cfg),
		TransferTimeout:  time.Duration(cfg.Download.TransferTimeoutS) * time.Second,
		PreserveMetadata: cfg.Download.PreserveMetadata,
	})
	if err != nil {
		return err
	}

	printStats(stats)
	return nil
}

func runExtraction(ctx context.Context, client *telegram.Client, log *logger.Logger, channel string, limit int, outPath string) error {
	agg := links.NewAggregator(client, log)
	report, err := agg.ExtractToFile(ctx, channel, limit, outPath)
	if err != nil {
		return err
	}
	fmt.Println(color.GreenString("extraction complete: %d links found (%d unique)",
		report.ExtractionInfo.TotalLinksFound, report.Statistics.UniqueLinks))
	fmt.Println(color.GreenString("links saved to: %s", outPath))
	return nil
}

// buildOutputPath composes base/[channel]/[date]/type per config.
func buildOutputPath(override string, channel *telegram.Channel, t media.Type, cfg config.DownloadConfig) string {
	base := cfg.OutputDir
	if override != "" {
		base = override
	}

	parts := []string{base}
	if cfg.OrganizeByChannel {
		name := channel.Username
		if name == "" {
			name = fmt.Sprintf("%d", channel.ID)
		}
		parts = append(parts, name)
	}
	if cfg.OrganizeByDate {
		parts = append(parts, time.Now().Format("2006-01-02"))
	}
	parts = append(parts, t.String())
	return filepath.Join(parts...)
}

func applySizeFilters(msgs []*telegram.Message, f config.FilterConfig) []*telegram.Message {
	var out []*telegram.Message
	for _, msg := range msgs {
		if media.AllowedBySize(media.Classify(msg), f) {
			out = append(out, msg)
		}
	}
	return out
}

func pickBatchSize(flagVal int, cfg *config.Config) int {
	if flagVal > 0 {
		return flagVal
	}
	return cfg.Telegram.BatchSize
}

func printStats(stats downloader.Stats) {
	fmt.Println()
	fmt.Println(color.New(color.Bold).Sprint("download results"))
	fmt.Printf("  %s %d\n", color.GreenString("successfully downloaded:"), stats.Success)
	fmt.Printf("  %s %d\n", color.RedString("failed:"), stats.Failed)
	fmt.Printf("  %s %d\n", color.YellowString("skipped (already downloaded):"), stats.Skipped)
	fmt.Printf("  total processed: %d\n", stats.Total())
	if stats.Failed > 0 {
		fmt.Println(color.YellowString("some downloads failed, check the log file for details"))
	}
}
