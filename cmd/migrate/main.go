package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"eeytech.com/console/internal/auth"
	"eeytech.com/console/internal/migrate"
	"eeytech.com/console/internal/obs"
	"eeytech.com/console/internal/store/pg"
	"eeytech.com/console/ops/migrations"
)

func main() {
	var (
		dsn      = flag.String("dsn", os.Getenv("PG_DSN"), "PostgreSQL DSN")
		dir      = flag.String("dir", "", "Read migrations from this directory instead of the embedded set")
		email    = flag.String("email", os.Getenv("SUPER_ADMIN_EMAIL"), "Super admin email for bootstrap")
		password = flag.String("password", os.Getenv("BOOTSTRAP_PASSWORD"), "Super admin password for bootstrap")
		adminApp = flag.String("admin-app", envOr("ADMIN_APP_SLUG", auth.DefaultAdminApplication), "Admin application slug for bootstrap")
	)
	flag.Parse()
	logger := obs.NewLogger(envOr("LOG_FORMAT", "text"), os.Stderr)

	if *dsn == "" {
		fatal(logger, "missing DSN: provide via -dsn or PG_DSN", nil)
	}
	if flag.NArg() == 0 {
		fatal(logger, "usage: migrate [up|down|seed|status|bootstrap]", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatal(logger, "open db", err)
	}
	defer db.Close()

	var fsys fs.FS = migrations.FS
	if *dir != "" {
		fsys = os.DirFS(*dir)
	}
	mgr := migrate.NewManager(db, fsys, "sql", "seeds")

	cmd := flag.Arg(0)
	switch cmd {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		for _, item := range history {
			fmt.Println(item)
		}
	case "bootstrap":
		var res migrate.BootstrapResult
		res, err = migrate.Bootstrap(ctx, pg.New(db), auth.BcryptHasher{}, migrate.BootstrapInput{
			AdminAppSlug: *adminApp,
			Email:        *email,
			Password:     *password,
		})
		if err == nil {
			logger.Info("bootstrap complete",
				slog.String("application", res.Application.Slug),
				slog.String("api_key", res.Application.APIKey),
				slog.String("user_id", res.User.ID),
				slog.Bool("created_application", res.CreatedApp),
				slog.Bool("created_user", res.CreatedUser),
			)
		}
	default:
		fatal(logger, fmt.Sprintf("unknown command %q", cmd), nil)
	}
	if err != nil {
		fatal(logger, "migrate "+cmd, err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(logger *slog.Logger, msg string, err error) {
	if err != nil {
		logger.Error(msg, slog.Any("error", err))
	} else {
		logger.Error(msg)
	}
	os.Exit(1)
}
