package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	jobs "github.com/goliatone/go-jobs"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("could not load .env: %v", err)
	}

	cfg := jobs.NewEnvConfig()
	logger := jobs.NewStdLogger("jobs-server")

	if cfg.GetSigningKey() == "" {
		log.Fatal("JOBS_SIGNING_KEY is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg)
	if err != nil {
		log.Fatalf("could not open database: %v", err)
	}
	defer db.Close()

	repo := jobs.NewRepositoryManager(db)
	repo.MustValidate()

	if err := seedRoles(ctx, db); err != nil {
		log.Fatalf("could not seed roles: %v", err)
	}

	signer := jobs.NewTokenSigner([]byte(cfg.GetSigningKey()), cfg.GetIssuer(), logger)
	signatures := jobs.NewClientSignatureBuilder()
	mailer := jobs.NewLogMailer(logger)

	issuer := jobs.NewTokenIssuer(cfg, repo, signer, signatures, logger)
	registration := jobs.NewUserRegistration(cfg, repo, mailer, signatures, logger)
	history := jobs.NewStatusHistory(repo, logger)

	controller := jobs.NewAPIController(issuer, registration, history,
		jobs.WithControllerLogger(logger),
		jobs.WithControllerDebug(os.Getenv("JOBS_DEBUG") != ""),
	)

	app := jobs.NewServer(cfg, controller, signer, repo.Users(), logger)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			logger.Error("shutdown failed: %s", err)
		}
	}()

	logger.Info("listening on %s", cfg.GetHTTPAddr())
	if err := app.Listen(cfg.GetHTTPAddr()); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func openDB(ctx context.Context, cfg jobs.Config) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.GetDSN())
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	models := []any{
		(*jobs.Role)(nil),
		(*jobs.User)(nil),
		(*jobs.Job)(nil),
		(*jobs.StatusEvent)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// seedRoles makes sure the immutable role reference data exists.
func seedRoles(ctx context.Context, db *bun.DB) error {
	seeds := []*jobs.Role{
		{ID: uuid.New(), Name: jobs.RoleUser, IsAdmin: false},
		{ID: uuid.New(), Name: jobs.RoleAdmin, IsAdmin: true},
	}

	for _, role := range seeds {
		_, err := db.NewInsert().
			Model(role).
			On("CONFLICT (name) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	return nil
}
