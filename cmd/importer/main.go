// Package main parses the orgaccept registration export and feeds it to the directory.
//
//	importer orgaccept.html [-o registrations.json] [--update-remote --url https://host] [--direct]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benasque-conf/participants/config"
	"github.com/benasque-conf/participants/internal/importer"
	"github.com/benasque-conf/participants/internal/models"
	"github.com/benasque-conf/participants/internal/registrations"
	"github.com/benasque-conf/participants/pkg/database"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	if err := run(os.Args[1:], logger); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Fatal("import failed", zap.Error(err))
	}
}

func run(args []string, logger *zap.Logger) error {
	var (
		output       string
		updateRemote bool
		baseURL      string
		direct       bool
		verbose      bool
		timeout      time.Duration
	)
	fs := pflag.NewFlagSet("importer", pflag.ContinueOnError)
	fs.StringVarP(&output, "output", "o", "registrations.json", "write parsed registrations to this JSON file")
	fs.BoolVar(&updateRemote, "update-remote", false, "post the batch to a running server")
	fs.StringVar(&baseURL, "url", "", "server base URL (required with --update-remote)")
	fs.BoolVar(&direct, "direct", false, "upsert into the database configured by the environment")
	fs.BoolVarP(&verbose, "verbose", "v", false, "log every parsed registration")
	fs.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP timeout for --update-remote")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: importer <orgaccept.html> [flags]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("exactly one HTML file is required")
	}
	if updateRemote && baseURL == "" {
		return errors.New("--url is required when using --update-remote")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := fs.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	records, err := importer.Parse(f)
	f.Close()
	if err != nil {
		return err
	}
	logger.Info("parsed export", zap.String("file", path), zap.Int("registrations", len(records)))
	if verbose {
		for _, r := range records {
			logger.Info("registration",
				zap.String("status", r.Status),
				zap.String("name", r.FirstName+" "+r.LastName),
				zap.String("email", r.Email),
				zap.String("stay", r.StartDate+"/"+r.EndDate),
			)
		}
	}

	if err := writeJSON(output, records); err != nil {
		return err
	}
	logger.Info("saved registrations", zap.String("output", output))

	if updateRemote {
		res, err := importer.NewRemote(baseURL, timeout).ImportBatch(ctx, records)
		if err != nil {
			return err
		}
		report(logger, "remote", res)
	}
	if direct {
		res, err := importDirect(ctx, records, logger)
		if err != nil {
			return err
		}
		report(logger, "direct", res)
	}
	return nil
}

func importDirect(ctx context.Context, records []models.RegistrationRecord, logger *zap.Logger) (*models.ImportResult, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN(), logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return nil, err
	}
	var sink importer.Sink = registrations.NewRepository(db)
	return sink.ImportBatch(ctx, records)
}

func report(logger *zap.Logger, target string, res *models.ImportResult) {
	logger.Info("registrations updated",
		zap.String("target", target),
		zap.Int("updated", res.Updated),
		zap.Int("total", res.TotalProcessed),
	)
	for _, e := range res.Errors {
		logger.Warn("registration skipped", zap.String("target", target), zap.String("reason", e))
	}
}

func writeJSON(path string, records []models.RegistrationRecord) error {
	if records == nil {
		records = []models.RegistrationRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
