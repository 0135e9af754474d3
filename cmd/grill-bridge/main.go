package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grillstats "github.com/lordmuffin/grill-stats-sub007"
)

//go:embed assets/banner_color.ansi
var bannerColor string

//go:embed assets/banner_plain.txt
var bannerPlain string

func main() {
	fmt.Print(selectBanner())
	fmt.Println()
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "status":
		err = statusCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("grill-bridge %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to bridge configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := grillstats.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := grillstats.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good ✅\n", *cfgPath)
	return nil
}

func selectBanner() string {
	if os.Getenv("NO_COLOR") != "" {
		return bannerPlain
	}
	return bannerColor
}

func statusCommand(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080/api/health", "Health endpoint of a running bridge")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	once := fs.Bool("once", false, "Print a single snapshot and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *once {
		return printHealthSnapshot(*url)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printHealthSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "status error: %v\n", err)
			}
		}
	}
}

func printHealthSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var status grillstats.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}

	fmt.Printf("[%s] state=%s\n", status.GeneratedAt.Format(time.RFC3339), status.State)
	for _, c := range status.Components {
		line := fmt.Sprintf("  %-14s consecutive_failures=%d recent_failures=%d",
			c.Component, c.ConsecutiveFailures, c.RecentFailures)
		if c.LastError != "" {
			line += " last_error=" + c.LastError
		}
		fmt.Println(line)
	}
	return nil
}

func printUsage() {
	fmt.Printf(`Grill Stats CLI

Usage:
  grill-bridge <command> [flags]

Commands:
  run        Start the bridge using the provided config (default)
  validate   Load and validate a config file without starting the bridge
  status     Poll the health endpoint of a running bridge and print it

Examples:
  grill-bridge run -config ./data/config.yaml
  grill-bridge validate -config ./data/config.yaml
  grill-bridge status -url http://localhost:8080/api/health -interval 1s
`)
}
