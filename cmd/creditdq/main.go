package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rpattn/creditdq/internal/ingestion"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var schemaErr *ingestion.SchemaError
		if errors.As(err, &schemaErr) {
			field := schemaErr.Field
			if field == "" {
				field = "<table>"
			}
			fmt.Fprintf(os.Stderr, "creditdq: cannot load %s: missing %s\n", schemaErr.Entity, field)
		}
		fmt.Fprintf(os.Stderr, "creditdq: %v\n", err)
		os.Exit(1)
	}
}
