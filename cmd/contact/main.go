package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/zhouzirui/contact-desk/backend/internal/client"
	"github.com/zhouzirui/contact-desk/backend/internal/contactform"
	"github.com/zhouzirui/contact-desk/backend/internal/logging"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	var (
		apiURL  string
		name    string
		email   string
		message string
	)

	flagSet := pflag.NewFlagSet("contact", pflag.ContinueOnError)
	flagSet.StringVar(&apiURL, "api", envOr("CONTACT_API_URL", "http://localhost:8080"), "contact-desk API base URL")
	flagSet.StringVar(&name, "name", "", "your name")
	flagSet.StringVar(&email, "email", "", "your email address")
	flagSet.StringVarP(&message, "message", "m", "", "message text (- reads stdin)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}

	if message == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: reading stdin: %v\n", err)
			return err
		}
		message = strings.TrimSpace(string(data))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(logging.Config{Level: "warn", Format: "console"})
	api := client.New(client.Config{BaseURL: apiURL, Timeout: 15 * time.Second})
	form := contactform.NewTerminalForm(map[string]string{
		"name":    name,
		"email":   email,
		"message": message,
	}, os.Stdout)

	return contactform.NewController(api, form, logger).Submit(ctx)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
