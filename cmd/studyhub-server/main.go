package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikepea/studyhub/pkg/studyhub/auth"
	"github.com/mikepea/studyhub/pkg/studyhub/config"
	"github.com/mikepea/studyhub/pkg/studyhub/database"
	"github.com/mikepea/studyhub/pkg/studyhub/logging"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
	"github.com/mikepea/studyhub/pkg/studyhub/server"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// @title StudyHub API
// @version 1.0
// @description Study group collaboration backend with role-based group memberships.

// @contact.name StudyHub Support
// @contact.url https://github.com/mikepea/studyhub

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT access token. Format: "Bearer {token}"

const shutdownTimeout = 10 * time.Second

func main() {
	app := &cli.App{
		Name:  "studyhub-server",
		Usage: "study group collaboration API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration file",
				EnvVars: []string{"STUDYHUB_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "migrate the database and run the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: migrate,
			},
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("studyhub-server failed")
	}
}

// bootstrap loads configuration, sets up logging and opens the migrated database
func bootstrap(c *cli.Context, requireSecret bool) (config.Config, *gorm.DB, func(), error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, nil, nil, err
	}
	if requireSecret {
		if err := cfg.Validate(); err != nil {
			return cfg, nil, nil, err
		}
	}

	logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		return cfg, nil, nil, err
	}

	if err := database.Connect(cfg.Database.DSN); err != nil {
		logCloser.Close()
		return cfg, nil, nil, err
	}
	db := database.GetDB()
	log.WithField("dialect", database.DetectDialect(cfg.Database.DSN)).Info("connected to database")

	if err := models.AutoMigrate(db); err != nil {
		database.Close(db)
		logCloser.Close()
		return cfg, nil, nil, err
	}
	log.Info("database migrations completed")

	cleanup := func() {
		if err := database.Close(db); err != nil {
			log.WithError(err).Warn("closing database")
		}
		logCloser.Close()
	}
	return cfg, db, cleanup, nil
}

func migrate(c *cli.Context) error {
	_, _, cleanup, err := bootstrap(c, false)
	if err != nil {
		return err
	}
	cleanup()
	return nil
}

func serve(c *cli.Context) error {
	cfg, db, cleanup, err := bootstrap(c, true)
	if err != nil {
		return err
	}
	defer cleanup()

	router := server.NewRouter(server.Deps{
		DB:     db,
		Tokens: auth.NewTokenService(cfg.SecretKey),
		Hasher: auth.NewBcryptHasher(bcrypt.DefaultCost),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting StudyHub server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
