package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kardianos/gatelist/config"
	"github.com/kardianos/gatelist/reload"
	"github.com/kardianos/gatelist/secret"
)

func runAgentMode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("agent", flag.ExitOnError)
	cfg, err := config.ParseAgent(fs, args)
	if err != nil {
		return err
	}
	log, err := config.NewLogger(os.Stderr, cfg.Log)
	if err != nil {
		return err
	}

	token := cfg.ReloadToken
	if token == "" {
		token, err = lookupSecret(cfg.SecretDir, secret.ReloadToken)
		if err != nil {
			return err
		}
	}
	if token == "" {
		return fmt.Errorf("no reload token: set GATELIST_RELOAD_TOKEN or run 'gatelist secret set %s'", secret.ReloadToken)
	}

	path, cmdArgs := cfg.CommandArgs()
	agent, err := reload.NewAgent(reload.AgentConfig{
		Token:         token,
		Action:        reload.CommandAction{Path: path, Args: cmdArgs},
		ActionTimeout: cfg.Timeout,
		Logger:        log,
	})
	if err != nil {
		return err
	}
	return agent.ListenAndServe(ctx, cfg.Listen)
}
