package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sticktock/mirror/internal/app"
	"github.com/sticktock/mirror/internal/cli"
	"github.com/sticktock/mirror/internal/config"
)

func main() {
	var (
		postURL string
		related bool
		token   string
		restore string
	)
	flag.StringVar(&postURL, "url", "", "Post URL to mirror")
	flag.BoolVar(&related, "related", false, "Mirror the first unwatched post related to --url")
	flag.StringVar(&token, "token", "", "Session token whose watched posts are skipped in related mode")
	flag.StringVar(&restore, "restore", "", "Internal id of a soft-deleted post to restore")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if err := app.InitSentry(cfg); err != nil {
		log.Fatal(err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if restore != "" {
		err = cli.HandleRestore(ctx, os.Stdout, a.DB, a.Pipeline, restore)
	} else {
		err = cli.HandleFetch(ctx, os.Stdout, a.Pipeline, postURL, related, token)
	}

	stop()
	// Background downloads and transcodes finish before exit.
	a.Close()

	if err != nil {
		log.Fatal(err)
	}
}
