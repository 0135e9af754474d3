package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lordmuffin/grill-stats-sub007/pkg/grillbridge"
)

func main() {
	flow, err := grillbridge.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callback := func(r grillbridge.Reading) error {
		fmt.Printf("%s %s value=%.1f%s\n",
			r.ObservedAt.Format(time.RFC3339),
			r.Key(),
			r.Value,
			r.Unit,
		)
		return nil
	}

	if err := flow.Run(ctx, grillbridge.SinkOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
