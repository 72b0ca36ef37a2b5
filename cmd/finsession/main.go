package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/avoronov/finsession/internal/models"
)

func main() {
	config := NewConfig()

	if err := config.LoadDotEnv(os.Getwd); err != nil {
		fmt.Fprintln(os.Stderr, "can't read .env file:", err)
		os.Exit(1)
	}
	config.LoadEnv(os.Getenv)

	rest, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "usage: finsession [flags] login|logout|whoami|accounts|transactions|budget")
		os.Exit(2)
	}

	app, err := NewApp(config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "can't initialize app, sorry:", err)
		os.Exit(1)
	}

	// Cancel in-flight calls on SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		cancel()
	}()

	if err := run(ctx, app, rest); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, app *App, args []string) error {
	command, args := args[0], args[1:]

	switch command {
	case "login":
		return runLogin(ctx, app, args)
	case "logout":
		app.Session.Logout()
		fmt.Println("logged out")
		return nil
	case "whoami":
		return runWhoami(app)
	case "accounts":
		return runAccounts(ctx, app)
	case "transactions":
		return runTransactions(ctx, app, args)
	case "budget":
		return runBudget(ctx, app, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runLogin(ctx context.Context, app *App, args []string) error {
	creds := models.Credentials{}

	switch len(args) {
	case 2:
		creds.Username, creds.Password = args[0], args[1]
	case 1:
		creds.Username = args[0]
		fmt.Fprint(os.Stderr, "password: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("can't read password: %w", err)
		}
		creds.Password = strings.TrimRight(line, "\r\n")
	default:
		return fmt.Errorf("usage: finsession login <username> [password]")
	}

	if _, err := app.Session.Login(ctx, creds); err != nil {
		return err
	}

	fmt.Printf("logged in as %s\n", creds.Username)
	return nil
}

func runWhoami(app *App) error {
	snap := app.Session.State().Current()
	if !snap.Authenticated {
		fmt.Println("not logged in")
		return nil
	}

	status := "valid"
	if app.Session.IsTokenExpired() {
		status = "expired (will refresh on next request)"
	}

	fmt.Printf("user:  %s\ntoken: %s\n", snap.User.Username, status)
	return nil
}

func runAccounts(ctx context.Context, app *App) error {
	if err := app.Session.EnsureAuthenticated(ctx, "/accounts"); err != nil {
		return err
	}

	accounts, err := app.API.Accounts().List(ctx)
	if err != nil {
		return err
	}

	for _, a := range accounts {
		fmt.Printf("%-36s  %-20s  %-10s  %10s %s\n",
			a.ID, a.Name, a.Type, a.Balance().StringFixed(2), a.Currency)
	}
	return nil
}

func runTransactions(ctx context.Context, app *App, args []string) error {
	if err := app.Session.EnsureAuthenticated(ctx, "/transactions"); err != nil {
		return err
	}

	params := ParseTransactionsArgs(args)
	transactions, err := app.API.Transactions().List(ctx, params)
	if err != nil {
		return err
	}

	for _, t := range transactions {
		fmt.Printf("%s  %-20s  %-15s  %10s %s\n",
			t.OccurredAt.Format(time.DateOnly), t.Merchant, t.Category, t.Amount().StringFixed(2), t.Currency)
	}
	return nil
}

func runBudget(ctx context.Context, app *App, args []string) error {
	if err := app.Session.EnsureAuthenticated(ctx, "/budget"); err != nil {
		return err
	}

	month := ""
	if len(args) > 0 {
		month = args[0]
	}

	summary, err := app.API.Budget().Summary(ctx, month)
	if err != nil {
		return err
	}

	fmt.Printf("month:        %s\nincome:       %s\nexpense:      %s\nsavings rate: %.1f%%\n",
		summary.Month, summary.Income().StringFixed(2), summary.Expense().StringFixed(2), summary.SavingsRate*100)
	return nil
}
