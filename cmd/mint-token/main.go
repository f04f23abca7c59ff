// mint-token issues a signed access token for a user so a client can open a
// chat connection, e.g. for local development:
//
//	mint-token --id 7 --email ada@example.com --staff
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"

	"github.com/Tyrowin/roomchat/internal/identity"
)

type tokenConfig struct {
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`
	TokenIssuer string `envconfig:"TOKEN_ISSUER" default:"roomchat"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		principal identity.Principal
		ttl       time.Duration
		envFile   string
	)

	flagSet := pflag.NewFlagSet("mint-token", pflag.ContinueOnError)
	flagSet.Int64Var(&principal.ID, "id", 0, "user id placed in the token subject")
	flagSet.StringVar(&principal.Email, "email", "", "user email")
	flagSet.BoolVar(&principal.IsStaff, "staff", false, "grant staff access to every room")
	flagSet.StringVar(&principal.AvatarURL, "avatar", "", "avatar URL shown with messages")
	flagSet.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintln(os.Stderr, "Usage: mint-token --id N --email ADDR [flags]")
		flagSet.PrintDefaults()
		return nil
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}

	var cfg tokenConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return err
	}

	token, err := identity.NewJWTProvider([]byte(cfg.JWTSecret), cfg.TokenIssuer).Issue(principal, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
