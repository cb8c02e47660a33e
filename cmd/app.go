package main

import (
	"fmt"
	"io"

	"laptop-checkpoint/internal/checkpoint"
	"laptop-checkpoint/internal/client"
	"laptop-checkpoint/internal/config"
	"laptop-checkpoint/internal/database"
	"laptop-checkpoint/internal/fallback"
	"laptop-checkpoint/internal/local"
	"laptop-checkpoint/internal/logging"
	"laptop-checkpoint/internal/store"

	"github.com/sirupsen/logrus"
)

// app holds everything a checkpoint command needs
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	db      *database.DB
	client  *client.HTTPClient
	service *checkpoint.Service
	closers []io.Closer
}

// newApp loads configuration and wires local storage, the remote client and
// the fallback coordinator into a checkpoint service
func newApp() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.Initialize(level)

	a := &app{cfg: cfg, logger: logger}

	logCloser, err := logging.SetupFileLogging(logger, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to set up file logging: %w", err)
	}
	a.closers = append(a.closers, logCloser)

	key, err := cfg.EncryptionKeyBytes()
	if err != nil {
		a.Close()
		return nil, err
	}

	db, err := database.NewDB(database.Config{
		DatabasePath:  cfg.DatabasePath,
		EncryptionKey: key,
		FullSync:      cfg.FullSync,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db)

	localEvents := local.NewEventStore(db)
	localDirectory := local.NewDirectoryStore(db)

	// Interface values stay untyped nil when offline so the coordinator
	// sees no remote at all
	var remoteEvents store.EventStore
	var remoteDirectory store.DirectoryStore

	if !offline {
		httpClient, err := client.NewHTTPClient(cfg, client.NewDocumentTokenStore(db), logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create service client: %w", err)
		}
		a.client = httpClient
		a.closers = append(a.closers, httpClient)

		remoteEvents = client.NewRemoteEventStore(httpClient)
		remoteDirectory = client.NewRemoteDirectoryStore(httpClient)
	}

	a.service = checkpoint.NewService(
		fallback.NewEventStore(remoteEvents, localEvents, logger),
		fallback.NewDirectoryStore(remoteDirectory, localDirectory, logger),
		logger,
		checkpoint.WithRegistrar(localDirectory),
	)

	logger.WithFields(logrus.Fields{
		"server_url": cfg.ServerURL,
		"database":   cfg.DatabasePath,
		"offline":    offline,
		"encrypted":  db.Encrypted(),
	}).Debug("Checkpoint initialized")

	return a, nil
}

// requireClient fails for commands that only make sense against the service
func (a *app) requireClient() error {
	if a.client == nil {
		return fmt.Errorf("this command needs the checkpoint service; drop --offline")
	}
	return nil
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close resource")
		}
	}
	a.closers = nil
}
