package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"budgettracker/internal/backend"
	"budgettracker/internal/cli"
	"budgettracker/internal/config"
	"budgettracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	env := config.Load()

	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Email address")
	name := fs.String("name", "", "Display name")
	currency := fs.String("currency", "", "Preferred currency code (default USD)")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	dbPath := fs.String("db", env.SQLiteDBPath, "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" || *name == "" {
		fmt.Fprintln(stdout, "Usage: adduser -email <email> -name <name> [-password <password>] [-currency <code>] [-db <db_path>]")
		fs.PrintDefaults()
		return errors.New("missing required flags: email, name")
	}

	password, confirm := *passwordFlag, *passwordFlag
	if password == "" {
		in := newPrompter(stdin)
		var err error
		fmt.Fprint(stdout, "Password: ")
		if password, err = in.readPassword(); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
		fmt.Fprint(stdout, "Confirm password: ")
		if confirm, err = in.readPassword(); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	if strings.TrimSpace(password) == "" {
		return errors.New("password cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backend.Config{
		SQLiteDBPath:  *dbPath,
		PublicBaseURL: env.PublicBaseURL,
		SessionTTL:    env.SessionTTL,
		BcryptCost:    env.BcryptCost,
		Notifier:      backend.LogNotifier,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer res.Cleanup()

	user, sess, err := res.Accounts.Register(ctx, services.Registration{
		Name:            *name,
		Email:           *email,
		Password:        password,
		ConfirmPassword: confirm,
		Currency:        *currency,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if err := res.Accounts.Logout(ctx, sess); err != nil {
		return fmt.Errorf("failed to discard session: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %d\n", user.Email, user.ID)
	return nil
}

// prompter reads passwords without echo from a terminal, or line by line
// from anything else.
type prompter struct {
	fd      int
	tty     bool
	scanner *bufio.Scanner
}

func newPrompter(stdin io.Reader) *prompter {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return &prompter{fd: int(f.Fd()), tty: true}
	}
	return &prompter{scanner: bufio.NewScanner(stdin)}
}

func (p *prompter) readPassword() (string, error) {
	if p.tty {
		b, err := term.ReadPassword(p.fd)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	if p.scanner.Scan() {
		return p.scanner.Text(), nil
	}
	if err := p.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
