// Command adv is a dev CLI for advault maintenance and debugging tasks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/chromedp/chromedp"
	"github.com/pkg/browser"

	"github.com/pcarling/advault/internal/adpipe"
	"github.com/pcarling/advault/internal/analyzer"
	browseropts "github.com/pcarling/advault/internal/browser"
	"github.com/pcarling/advault/internal/config"
	"github.com/pcarling/advault/internal/media"
	"github.com/pcarling/advault/internal/providers"
	"github.com/pcarling/advault/internal/reconcile"
	"github.com/pcarling/advault/internal/storage"
	"github.com/pcarling/advault/internal/xurl"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "fetch":
		if len(os.Args) < 3 {
			fmt.Println("Usage: adv fetch <tweet-url>")
			os.Exit(1)
		}
		runFetch(os.Args[2])
	case "process-ad":
		if len(os.Args) < 3 {
			fmt.Println("Usage: adv process-ad <tweet-url>")
			os.Exit(1)
		}
		runProcessAd(os.Args[2])
	case "open":
		if len(os.Args) < 3 {
			fmt.Println("Usage: adv open <config|data>")
			os.Exit(1)
		}
		runOpen(os.Args[2])
	case "browser-test":
		runBrowserTest()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: adv <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  fetch <url>       Fetch a tweet and print the merged record")
	fmt.Println("  process-ad <url>  Run the full video ad pipeline for one tweet")
	fmt.Println("  open config       Open config file in default editor")
	fmt.Println("  open data         Open data directory in file explorer")
	fmt.Println("  browser-test      Open bot.sannysoft.com to audit browser fingerprint")
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	return cfg
}

func buildEngine(cfg *config.Config) *reconcile.Engine {
	engine := reconcile.New(
		providers.NewFXTwitter(),
		providers.NewVXTwitter(),
		providers.NewSyndication(),
		providers.NewYTDLP(cfg.Providers.YTDLPBin),
		nil,
	)
	fallbacks := []providers.Provider{providers.NewOEmbed()}
	if cfg.Providers.BrowserFallback {
		fallbacks = append(fallbacks, providers.NewBrowser(cfg.Providers.Headless, cfg.Providers.CookieFile))
	}
	return engine.WithFallbacks(fallbacks...)
}

func runFetch(url string) {
	ref, err := xurl.Parse(url)
	if err != nil {
		log.Fatalf("Invalid tweet URL: %v", err)
	}

	engine := buildEngine(loadConfig())
	rec, err := engine.Reconcile(context.Background(), ref)
	if err != nil {
		log.Fatalf("Fetch failed: %v", err)
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		log.Fatalf("Failed to render record: %v", err)
	}
	fmt.Println(string(out))
}

func runProcessAd(url string) {
	cfg := loadConfig()

	backend, err := storage.Open(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer backend.Close()

	llm, err := analyzer.New(cfg.Analysis, cfg.Storage.DataDir)
	if err != nil {
		log.Fatalf("Failed to configure analyzer: %v", err)
	}

	fx := providers.NewFXTwitter()
	ytdlp := providers.NewYTDLP(cfg.Providers.YTDLPBin)
	pipeline := adpipe.New(
		providers.NewVideoResolver(fx, ytdlp),
		media.NewManager(cfg.Storage.MediaDir),
		adpipe.NewTranscriber(cfg.Pipeline.WhisperBin, cfg.Pipeline.WhisperModel),
		llm,
		media.NewFrameExtractor(cfg.Pipeline.FFmpegBin),
		backend,
		nil,
	)

	result, err := pipeline.ProcessAd(context.Background(), url)
	if err != nil {
		log.Fatalf("Processing failed: %v", err)
	}

	fmt.Printf("Added ad %s: %s (%d shots, %d chars of transcript)\n",
		result.ID, result.Title, result.ShotsCount, result.TranscriptLength)
}

func runOpen(target string) {
	var path string
	var err error

	switch target {
	case "config":
		path, err = config.ConfigPath()
	case "data":
		path = loadConfig().Storage.DataDir
	default:
		fmt.Printf("Unknown target: %s\n", target)
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Failed to get path: %v", err)
	}

	if err := browser.OpenFile(path); err != nil {
		log.Fatalf("Failed to open: %v", err)
	}
}

func runBrowserTest() {
	log.Println("Opening bot.sannysoft.com with stealth browser options...")

	opts := browseropts.Options(false) // non-headless so you can see it

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	go func() {
		err := chromedp.Run(ctx,
			chromedp.Navigate("https://bot.sannysoft.com"),
		)
		if err != nil {
			log.Printf("Failed to navigate: %v", err)
		}
	}()

	fmt.Println("Press Enter to end program...")
	fmt.Scanln()

	log.Println("Done.")
}
