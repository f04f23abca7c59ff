// roomchat-server serves the per-room WebSocket chat endpoint.
//
// Configuration is read from the environment, optionally seeded from a
// dotenv file. See internal/server.Config for every setting.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/Tyrowin/roomchat/internal/identity"
	"github.com/Tyrowin/roomchat/internal/server"
	"github.com/Tyrowin/roomchat/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var envFile string

	flagSet := pflag.NewFlagSet("roomchat-server", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintln(os.Stderr, "Usage: roomchat-server [flags]")
		flagSet.PrintDefaults()
		return nil
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}

	cfg, err := server.LoadConfig()
	if err != nil {
		return err
	}
	log := server.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	rooms, err := store.Open(cfg.StoreDriver, cfg.StoreDSN, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := rooms.Close(); err != nil {
			log.Error("Closing store", "error", err)
		}
	}()

	identities := identity.NewJWTProvider([]byte(cfg.JWTSecret), cfg.TokenIssuer)

	srv, err := server.New(cfg, rooms, identities, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting roomchat server", "store", cfg.StoreDriver, "origins", cfg.AllowedOrigins)
	if err := srv.Run(ctx); err != nil {
		return err
	}
	log.Info("Server exited cleanly")
	return nil
}
