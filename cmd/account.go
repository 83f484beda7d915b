package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"crescer/internal/auth"
	"crescer/internal/config"
	"crescer/internal/models"
	"crescer/internal/service"

	"github.com/google/subcommands"
)

// openLocal loads the configuration and wires the app for a one-shot command.
// Logs go to stderr so command output stays clean.
func openLocal(ctx context.Context, envFile string) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return newApp(ctx, cfg, logger)
}

func startSession(a *app, user *models.User) error {
	token, err := a.tokens.Issue(auth.Claims{UserID: user.ID, Username: user.Username})
	if err != nil {
		return err
	}
	return saveSession(a.cfg.SessionFile, token)
}

type registerCmd struct {
	envFile  string
	username string
	password string
	confirm  string
	email    string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create an account and start a session" }
func (*registerCmd) Usage() string {
	return `crescer register -u <username> -p <password> [-confirm <password>] [-email <email>]
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.envFile, "env", ".env", "Environment file loaded before reading the configuration.")
	f.StringVar(&c.username, "u", "", "Username.")
	f.StringVar(&c.password, "p", os.Getenv("CRESCER_PASSWORD"), "Password (defaults to $CRESCER_PASSWORD).")
	f.StringVar(&c.confirm, "confirm", "", "Password confirmation (defaults to -p).")
	f.StringVar(&c.email, "email", "", "Optional email.")
}

func (c *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openLocal(ctx, c.envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	confirm := c.confirm
	if confirm == "" {
		confirm = c.password
	}
	user, err := a.authSvc.Register(ctx, service.RegisterInput{
		Username:        c.username,
		Password:        c.password,
		ConfirmPassword: confirm,
		Email:           c.email,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Registration failed:", err)
		return subcommands.ExitFailure
	}
	if err := startSession(a, user); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Welcome, %s!\n", user.Username)
	return subcommands.ExitSuccess
}

type loginCmd struct {
	envFile  string
	username string
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "log in and save the session" }
func (*loginCmd) Usage() string {
	return `crescer login -u <username> -p <password>
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.envFile, "env", ".env", "Environment file loaded before reading the configuration.")
	f.StringVar(&c.username, "u", "", "Username.")
	f.StringVar(&c.password, "p", os.Getenv("CRESCER_PASSWORD"), "Password (defaults to $CRESCER_PASSWORD).")
}

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openLocal(ctx, c.envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	user, err := a.authSvc.Login(ctx, c.username, c.password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Login failed:", err)
		return subcommands.ExitFailure
	}
	if err := startSession(a, user); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Logged in as %s\n", user.Username)
	return subcommands.ExitSuccess
}

type logoutCmd struct {
	envFile string
}

func (*logoutCmd) Name() string     { return "logout" }
func (*logoutCmd) Synopsis() string { return "forget the saved session" }
func (*logoutCmd) Usage() string {
	return `crescer logout
`
}

func (c *logoutCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.envFile, "env", ".env", "Environment file loaded before reading the configuration.")
}

func (c *logoutCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load(c.envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := clearSession(cfg.SessionFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println("Logged out")
	return subcommands.ExitSuccess
}
