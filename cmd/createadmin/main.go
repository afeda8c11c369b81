// Command createadmin creates an administrator account, or grants the admin flag to an
// existing one.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/kumagoya/kumagoya/internal/auth"
	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/db"
	"github.com/kumagoya/kumagoya/internal/logger"
	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/kumagoya/kumagoya/internal/repository"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	outputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	email := flag.String("email", "", "Email of the administrator")
	revoke := flag.Bool("revoke", false, "Remove the admin flag instead of granting it")
	flag.Parse()

	l := logger.New("warn", true)
	config.SetLogger(logger.Component(l, "config"))
	db.SetLogger(logger.Component(l, "db"))
	repository.SetLogger(logger.Component(l, "repository"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err)
	}

	in := bufio.NewScanner(os.Stdin)
	if *email == "" {
		*email = prompt(in, "Email: ")
	}
	if !auth.EmailRX.MatchString(strings.ToLower(*email)) {
		fail(fmt.Errorf("invalid email %q", *email))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	d, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, db.Pool{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		fail(err)
	}
	if err := d.Init(ctx); err != nil {
		fail(err)
	}
	defer d.Close()
	if err := db.Migrate(ctx, d); err != nil {
		fail(err)
	}

	users := repository.NewDBUserRepository(d)
	user, err := users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(*email)))
	switch {
	case err == nil:
		if err := users.SetAdmin(ctx, user.ID, !*revoke); err != nil {
			fail(err)
		}
		verb := "granted to"
		if *revoke {
			verb = "revoked from"
		}
		fmt.Println(outputStyle.Render(fmt.Sprintf("Admin %s %s", verb, user.Email)))
	case errors.Is(err, repository.ErrNotFound):
		if *revoke {
			fail(fmt.Errorf("no user with email %s", *email))
		}
		password := prompt(in, "Password: ")
		if len([]rune(password)) < cfg.Auth.MinPassword {
			fail(fmt.Errorf("password must be at least %d characters", cfg.Auth.MinPassword))
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			fail(err)
		}
		user := &model.User{Email: *email, PasswordHash: hash, IsAdmin: true}
		if err := users.CreateUser(ctx, user); err != nil {
			fail(err)
		}
		fmt.Println(outputStyle.Render(fmt.Sprintf("Created admin %s (%s)", user.Email, user.ID)))
	default:
		fail(err)
	}
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(promptStyle.Render(label))
	if !in.Scan() {
		fail(errors.New("no input"))
	}
	return strings.TrimSpace(in.Text())
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
	os.Exit(1)
}
