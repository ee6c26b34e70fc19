package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kardianos/gatelist"
	"github.com/kardianos/gatelist/config"
)

func runConsoleMode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("console", flag.ExitOnError)
	var (
		user    string
		channel string
		roles   string
	)
	fs.StringVar(&user, "user", "console", "Caller user ID")
	fs.StringVar(&channel, "channel", "", "Caller channel ID (defaults to the apply channel)")
	fs.StringVar(&roles, "roles", "", "Comma separated caller role IDs")
	cfg, err := config.ParseServer(fs, args)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if channel == "" {
		channel = cfg.ApplyChannel
	}
	caller := gatelist.Caller{UserID: user, ChannelID: channel, Roles: splitList(roles)}
	return runConsole(ctx, a, caller, os.Stdin, os.Stdout)
}

// runConsole dispatches each input line and prints the rendered reply.
func runConsole(ctx context.Context, a *app, caller gatelist.Caller, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply := a.engine.Dispatch(ctx, caller, line)
		if _, err := fmt.Fprintln(out, a.renderer.Render(a.cfg.Locale, reply)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
