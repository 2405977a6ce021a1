package main

import (
	"context"
	"log"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/app/bootstrap"
)

func main() {
	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, "configs/default.yaml")
	if err != nil {
		log.Fatalf("bootstrap api runtime: %v", err)
	}

	// The api binary runs the worker pool in-process; a dedicated worker
	// deployment uses cmd/worker instead.
	go runtime.Service().RunWorkers(ctx)

	if err := runtime.RunAPI(ctx); err != nil {
		log.Fatalf("run api: %v", err)
	}
}
