package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/text/language"

	"github.com/kardianos/gatelist"
	"github.com/kardianos/gatelist/config"
	"github.com/kardianos/gatelist/httpapi"
	"github.com/kardianos/gatelist/reload"
	"github.com/kardianos/gatelist/replytext"
	"github.com/kardianos/gatelist/resolve"
	"github.com/kardianos/gatelist/secret"
	"github.com/kardianos/gatelist/store"
)

// app is the wired workflow shared by serve and console.
type app struct {
	cfg      config.Server
	log      *slog.Logger
	store    store.Store
	ledger   *gatelist.Ledger
	engine   *gatelist.Engine
	renderer *replytext.Renderer
}

func (a *app) Close() error {
	return a.store.Close()
}

func newApp(cfg config.Server) (*app, error) {
	log, err := config.NewLogger(os.Stderr, cfg.Log)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.StoreConfig(log))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	resolver, err := resolve.NewClient(cfg.ResolverURL, resolve.WithTimeout(cfg.ResolverTimeout))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("resolver: %w", err)
	}

	reloader, err := newReloader(cfg, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	ledger := gatelist.NewLedger(cfg.RateInterval, nil)
	engine, err := gatelist.NewEngine(cfg.Engine(), gatelist.Deps{
		Store:    st,
		Resolver: resolver,
		Reloader: reloader,
		Ledger:   ledger,
		Logger:   log,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		ledger:   ledger,
		engine:   engine,
		renderer: replytext.New(language.Make(cfg.Locale)),
	}, nil
}

// newReloader returns nil when no agent address is configured.
func newReloader(cfg config.Server, log *slog.Logger) (gatelist.Reloader, error) {
	if cfg.ReloadAddr == "" {
		log.Info("reload agent not configured; /reload is disabled")
		return nil, nil
	}
	token := cfg.ReloadToken
	if token == "" {
		var err error
		token, err = lookupSecret(cfg.SecretDir, secret.ReloadToken)
		if err != nil {
			return nil, err
		}
	}
	c, err := reload.NewClient(reload.ClientConfig{Addr: cfg.ReloadAddr, Token: token})
	if err != nil {
		return nil, fmt.Errorf("reload client: %w", err)
	}
	return c, nil
}

func openSecrets(dir string) (*secret.Store, error) {
	if dir == "" {
		var err error
		dir, err = secret.DefaultDir()
		if err != nil {
			return nil, err
		}
	}
	return secret.Open(dir)
}

func lookupSecret(dir, name string) (string, error) {
	s, err := openSecrets(dir)
	if err != nil {
		return "", fmt.Errorf("open secrets: %w", err)
	}
	return s.Lookup(name)
}

func runServeMode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg, err := config.ParseServer(fs, args)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	go a.ledger.Run(ctx)

	srv, err := httpapi.New(httpapi.Config{
		Dispatcher: a.engine,
		Renderer:   a.renderer,
		Logger:     a.log,
	})
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, cfg.HTTPAddr)
}
