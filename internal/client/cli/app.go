// Package cli implements the interactive SpendKeeper command-line client:
// a small REPL over the REST API for registering, logging in, and managing
// expenses.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spendkeeper/spendkeeper/internal/client/api"
	"github.com/spendkeeper/spendkeeper/internal/client/config"
	"github.com/spendkeeper/spendkeeper/internal/common"
)

type App struct {
	config *config.Config
	api    *api.Client
	reader *bufio.Reader
	email  string
}

func NewApp(c *config.Config) (*App, error) {
	return &App{
		config: c,
		api:    api.NewClient(c.ServerBaseURL, c.RequestTimeout),
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.api.IsLoggedIn()
}

func (a *App) status() string {
	if a.isLoggedIn() {
		return a.email
	}
	return "not logged in"
}

// Run starts the REPL and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	printlnFn("SpendKeeper CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}

// Register prompts for credentials and creates an account.
func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	pw, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	user, err := a.api.Register(ctx, email, string(pw))
	if err != nil {
		printlnFn("Registration failed:", err)
		return err
	}

	printlnFn("Registered:", user.Email)
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	pw, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	user, err := a.api.Login(ctx, email, string(pw))
	if err != nil {
		printlnFn("Login failed:", err)
		return err
	}

	a.email = user.Email
	printlnFn("Logged in as", user.Email)
	return nil
}

// List prints the user's expenses.
func (a *App) List(ctx context.Context) error {
	list, err := a.api.ListExpenses(ctx)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}

	if len(list) == 0 {
		printlnFn("No expenses yet.")
		return nil
	}
	for _, e := range list {
		printlnFn(fmt.Sprintf("%s  %8.2f  %-12s %s", e.SpentAt.Format("2006-01-02"), e.Amount, e.Category, e.Description))
	}
	return nil
}

// Add prompts for expense fields and creates a record.
func (a *App) Add(ctx context.Context) error {
	amountStr, err := GetSimpleText(a.reader, "Enter amount", os.Stdout)
	if err != nil {
		return err
	}
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil || amount <= 0 {
		printlnFn("Amount must be a positive number")
		return common.ErrorValidation
	}

	category, err := GetSimpleText(a.reader, "Enter category", os.Stdout)
	if err != nil {
		return err
	}
	description, err := GetSimpleText(a.reader, "Enter description (optional)", os.Stdout)
	if err != nil {
		return err
	}

	e, err := a.api.AddExpense(ctx, amount, category, description)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}

	printlnFn("Added expense", e.ID)
	return nil
}

// Logout ends the session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		printlnFn("Error:", err)
		return err
	}
	a.email = ""
	printlnFn("Logged out.")
	return nil
}
