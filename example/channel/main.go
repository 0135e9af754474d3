package main

import (
	"context"
	"fmt"
	"log"
	"time"

	grillstats "github.com/lordmuffin/grill-stats-sub007"
)

func main() {
	flow, err := grillstats.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, readings, closeReadings := grillstats.NewChannelSink("fanout", 32)
	defer closeReadings()

	go fanoutWorker("ingest", readings)

	if err := flow.Run(ctx, grillstats.SinkOutSinks(sink)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, readings <-chan grillstats.Reading) {
	for r := range readings {
		fmt.Printf("[%s] forwarding %s=%.1f at %s\n", name, r.Key(), r.Value, time.Now().Format(time.RFC3339))
	}
}
