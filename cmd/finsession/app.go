package main

import (
	"fmt"
	"net/http"

	"github.com/avoronov/finsession/internal/api"
	"github.com/avoronov/finsession/internal/gate"
	"github.com/avoronov/finsession/internal/identity"
	"github.com/avoronov/finsession/internal/logger"
	"github.com/avoronov/finsession/internal/session"
	"github.com/avoronov/finsession/internal/tokenstore"
)

type App struct {
	Config  *Config
	Logger  logger.Logger
	Session *session.Manager
	API     *api.Client
}

func NewApp(c *Config) (*App, error) {
	log := logger.NewLogger(c.LogLevel)

	// Token store: encrypted file when a passphrase is set
	path, err := c.ResolveTokenFile()
	if err != nil {
		return nil, fmt.Errorf("error while resolving token file path. Err: %w", err)
	}

	var store tokenstore.Store
	if c.TokenPassphrase != "" {
		store, err = tokenstore.OpenEncryptedFile(path, c.TokenPassphrase)
	} else {
		store, err = tokenstore.OpenFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("error while opening token store. Err: %w", err)
	}

	// Identity endpoint client
	idClient, err := identity.New(identity.Config{
		AuthURL:      c.AuthURL,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Logger:       log.WithGroup("identity"),
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating identity client. Err: %w", err)
	}

	// Session manager, the only writer of store and state
	manager, err := session.NewManager(session.Config{
		Identity: idClient,
		Store:    store,
		Logger:   log.WithGroup("session"),
		OnLoginRequired: func(returnURL string) {
			if returnURL != "" {
				log.Info("Login required", "return_url", returnURL)
				return
			}
			log.Info("Login required")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating session manager. Err: %w", err)
	}

	// Restore a previous session before anything touches the network
	manager.Initialize()

	// Request gate in front of every gateway call
	var base http.RoundTripper
	if c.UseMock {
		base = api.NewMockTransport()
	}

	transport, err := gate.New(gate.Config{
		Session: manager,
		AuthURL: c.AuthURL,
		Base:    base,
		Logger:  log.WithGroup("gate"),
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating request gate. Err: %w", err)
	}

	return &App{
		Config:  c,
		Logger:  log,
		Session: manager,
		API:     api.NewClient(c.APIBase, transport.Client(), log.WithGroup("api")),
	}, nil
}
