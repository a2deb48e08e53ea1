// Command alerttoken prints a bearer token for a recognized person so the
// camera-side face recognizer can authenticate its /send-alert calls.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/pflag"

	"homeguard/internal/auth"
	"homeguard/internal/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var (
		name string
		ttl  time.Duration
	)

	flagSet := pflag.NewFlagSet("alerttoken", pflag.ContinueOnError)
	flagSet.StringVarP(&name, "name", "n", "", "recognized person the token is issued to")
	flagSet.DurationVar(&ttl, "ttl", 0, "token lifetime (default JWT_TTL)")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if name == "" {
		return fmt.Errorf("--name is required")
	}

	cfg := config.Load()
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, ttl)
	if err != nil {
		return err
	}

	tok, err := tokens.Issue(auth.Claims{RecognizedName: name})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}
