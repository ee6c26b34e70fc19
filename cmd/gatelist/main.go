package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	mode := os.Args[1]
	args := os.Args[2:]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var err error
	switch mode {
	case "serve":
		err = runServeMode(ctx, args)
	case "console":
		err = runConsoleMode(ctx, args)
	case "agent":
		err = runAgentMode(ctx, args)
	case "secret":
		err = runSecretMode(args)
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown mode: %s\n", mode)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: gatelist <mode> [options]

Modes:
  serve     Run the workflow behind the HTTP command bridge
  console   Run commands typed on stdin as one caller
  agent     Run the reload agent next to the game server
  secret    Manage stored secrets (set, get, delete, list)

Settings are read from GATELIST_* environment variables; flags override them.
Run 'gatelist <mode> -h' for mode-specific options.
`)
}
