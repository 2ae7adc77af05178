package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/zhouzirui/contact-desk/backend/internal/client"
	"github.com/zhouzirui/contact-desk/backend/internal/console"
	"github.com/zhouzirui/contact-desk/backend/internal/logging"
)

const maxAttempts = 3

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		apiURL       string
		sessionFile  string
		username     string
		passwordFile string
		logLevel     string
		logout       bool
		follow       bool
	)

	flagSet := pflag.NewFlagSet("contact-console", pflag.ContinueOnError)
	flagSet.StringVar(&apiURL, "api", envOr("CONTACT_API_URL", "http://localhost:8080"), "contact-desk API base URL")
	flagSet.StringVar(&sessionFile, "session-file", client.SessionFilePath(), "where the session token is kept")
	flagSet.StringVarP(&username, "username", "u", "", "operator username (prompted when empty)")
	flagSet.StringVar(&passwordFile, "password-file", "", "read the password from this file instead of prompting")
	flagSet.StringVar(&logLevel, "log-level", "warn", "log level")
	flagSet.BoolVar(&logout, "logout", false, "sign out and forget the saved session")
	flagSet.BoolVarP(&follow, "follow", "f", false, "keep running and print new messages as they arrive")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(logging.Config{Level: logLevel, Format: "console"})
	api := client.New(client.Config{BaseURL: apiURL, Timeout: 15 * time.Second})
	sessions := client.NewSessionManager(api, sessionFile, client.WithSessionLogger(logger))
	view := console.NewTerminalView(os.Stdout, terminalWidth())
	ctrl := console.NewController(sessions, api, view, logger)

	if logout {
		return ctrl.SignOut(ctx)
	}

	if ctrl.Load(ctx) != console.Authenticated {
		if err := signIn(ctx, ctrl, username, passwordFile); err != nil {
			return err
		}
	}

	if !follow {
		return nil
	}
	err := ctrl.Follow(ctx, func() {
		fmt.Fprintln(os.Stderr, "Following new messages, press Ctrl-C to stop.")
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// signIn prompts for credentials until the controller authenticates. Only an
// interactive terminal gets more than one attempt.
func signIn(ctx context.Context, ctrl *console.Controller, username, passwordFile string) error {
	interactive := passwordFile == "" && term.IsTerminal(int(os.Stdin.Fd()))
	attempts := 1
	if interactive {
		attempts = maxAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		user := username
		if user == "" {
			var err error
			if user, err = promptLine("Username: "); err != nil {
				return err
			}
		}
		password, err := readPassword(passwordFile)
		if err != nil {
			return err
		}

		lastErr = ctrl.Submit(ctx, user, password)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, client.ErrAuthenticationRejected) {
			return lastErr
		}
	}
	return lastErr
}

func promptLine(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

func readPassword(passwordFile string) (string, error) {
	if passwordFile != "" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", passwordFile, err)
		}
		password := strings.TrimRight(string(data), "\r\n")
		if password == "" {
			return "", fmt.Errorf("file %s is empty", passwordFile)
		}
		return password, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for password prompt (use --password-file)")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}

func terminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 20 {
		return width
	}
	return 80
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
