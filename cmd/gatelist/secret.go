package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kardianos/gatelist/secret"
)

func runSecretMode(args []string) error {
	fs := flag.NewFlagSet("secret", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: gatelist secret [-dir path] <set|get|delete|list> [name]

"set" reads the value from stdin.

`)
		fs.PrintDefaults()
	}
	dir := fs.String("dir", os.Getenv("GATELIST_SECRET_DIR"), "Secret directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openSecrets(*dir)
	if err != nil {
		return fmt.Errorf("open secrets: %w", err)
	}
	return runSecret(s, fs.Args(), os.Stdin, os.Stdout)
}

func runSecret(s *secret.Store, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("secret: command required")
	}
	cmd, rest := args[0], args[1:]
	if cmd == "list" {
		names, err := s.Names()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(out, n)
		}
		return nil
	}
	if len(rest) != 1 {
		return fmt.Errorf("secret %s: exactly one name required", cmd)
	}
	name := rest[0]

	switch cmd {
	case "set":
		value, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read value: %w", err)
		}
		value = strings.TrimRight(value, "\r\n")
		if value == "" {
			return fmt.Errorf("secret %s: empty value", name)
		}
		return s.Set(name, value)
	case "get":
		v, err := s.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, v)
		return nil
	case "delete":
		return s.Delete(name)
	default:
		return fmt.Errorf("unknown secret command: %s", cmd)
	}
}
