package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	grillstats "github.com/lordmuffin/grill-stats-sub007"
)

func main() {
	flow, err := grillstats.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := flow.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("bridge runtime exited: %v", err)
	}
}
