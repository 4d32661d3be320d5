package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sentrolokal/barangay/internal/barangay"
	"github.com/sentrolokal/barangay/internal/db"
	"github.com/sentrolokal/barangay/internal/mailer"
	"github.com/sentrolokal/barangay/internal/repo"
	"github.com/sentrolokal/barangay/internal/service"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	ctx := context.Background()

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		log.Fatal().Msg("set DB_DSN or DATABASE_URL")
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to the database")
	}
	defer pool.Close()

	barangays := barangay.NewService(barangay.NewRepository(pool))

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "create":
		if err := runCreate(ctx, barangays, args); err != nil {
			log.Fatal().Err(err).Msg("could not create barangay")
		}
	case "list":
		if err := runList(ctx, barangays); err != nil {
			log.Fatal().Err(err).Msg("could not list barangays")
		}
	case "account":
		users := service.NewUsersService(repo.New(pool), barangays, mailer.LogMailer{})
		if err := runAccount(ctx, users, args); err != nil {
			log.Fatal().Err(err).Msg("could not create account")
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "barangayctl")
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  barangayctl create --slug poblacion --name \"Poblacion\" --municipality \"San Isidro\"")
	fmt.Fprintln(os.Stderr, "  barangayctl list")
	fmt.Fprintln(os.Stderr, "  barangayctl account --barangay poblacion --name \"Juan dela Cruz\" --email juan@example.com --password secret123 --role secretary")
}

func runCreate(ctx context.Context, svc *barangay.Service, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		slug         = fs.String("slug", "", "unique barangay slug")
		name         = fs.String("name", "", "display name")
		municipality = fs.String("municipality", "", "municipality or city")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	created, err := svc.Create(ctx, barangay.CreateInput{
		Slug:         *slug,
		DisplayName:  *name,
		Municipality: *municipality,
	})
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(created, "", "  ")
	fmt.Println(string(out))
	return nil
}

func runList(ctx context.Context, svc *barangay.Service) error {
	list, err := svc.List(ctx)
	if err != nil {
		return err
	}

	for _, b := range list {
		fmt.Printf("%s\t%s\t%s\n", b.Slug, b.DisplayName, b.Municipality)
	}
	return nil
}

func runAccount(ctx context.Context, users *service.UsersService, args []string) error {
	fs := flag.NewFlagSet("account", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		brgy     = fs.String("barangay", "", "barangay slug")
		name     = fs.String("name", "", "full name")
		email    = fs.String("email", "", "email address")
		password = fs.String("password", "", "initial password")
		role     = fs.String("role", repo.RoleSecretary, "account role")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	// The CLI runs as an operator, so it may grant any role. The service
	// still resolves the barangay slug before inserting.
	user, err := users.CreateAccount(ctx, service.CreateAccountInput{
		Name:       *name,
		Email:      *email,
		Password:   *password,
		Barangay:   *brgy,
		Role:       *role,
		CallerRole: repo.RoleAdmin,
	})
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(user.Public(), "", "  ")
	fmt.Println(string(out))
	return nil
}
