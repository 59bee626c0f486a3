// tokenward issues, rotates and revokes session tokens.
//
//	tokenward [serve] [--config tokenward.yaml]
//	tokenward useradd --username rick --email rick@example.com [--password ...]
//	tokenward useradd --username rick --disable
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/aussiebroadwan/tokenward/internal/session/app"
	"github.com/aussiebroadwan/tokenward/pkg/cryptox"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("tokenward: %v", err)
	}
}

func run(args []string) error {
	command := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		return serve(args)
	case "useradd":
		return useradd(args)
	default:
		return fmt.Errorf("unknown command %q (want serve or useradd)", command)
	}
}

func serve(args []string) error {
	flags := pflag.NewFlagSet("tokenward serve", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to a YAML config file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run()
}

func useradd(args []string) error {
	flags := pflag.NewFlagSet("tokenward useradd", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to a YAML config file")
	username := flags.StringP("username", "u", "", "login name")
	email := flags.StringP("email", "e", "", "email address")
	password := flags.StringP("password", "p", "", "password (generated when empty)")
	disable := flags.Bool("disable", false, "disable an existing principal")
	enable := flags.Bool("enable", false, "re-enable an existing principal")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("--username is required")
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	cfg.LogLevel = "warn"

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() { _ = application.Close() }()

	ctx := context.Background()
	dir := application.Directory()

	if *disable || *enable {
		if err := dir.SetDisabled(ctx, *username, *disable); err != nil {
			return err
		}
		fmt.Printf("%s disabled=%t\n", *username, *disable)
		return nil
	}

	if *email == "" {
		return errors.New("--email is required")
	}

	secret := *password
	generated := secret == ""
	if generated {
		if secret, err = cryptox.GeneratePassword(); err != nil {
			return err
		}
	}

	p, err := dir.CreatePrincipal(ctx, *username, *email, secret)
	if err != nil {
		return err
	}

	fmt.Printf("created %s (%s) id=%s\n", p.Username, p.Email, p.ID)
	if generated {
		fmt.Printf("password: %s\n", secret)
	}
	return nil
}
