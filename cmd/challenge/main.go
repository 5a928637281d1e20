package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	challengecmd "github.com/flagforge/flagforge/internal/cmd/challenge"
)

func main() {
	cfg, err := challengecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[CHALLENGE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := challengecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to run: %v", err)
	}
}
