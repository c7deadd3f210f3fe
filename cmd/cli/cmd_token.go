package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/thecyberx/cyberx/pkg/server"
)

// runToken issues a bearer token for a server started with -secret.
func runToken(argv []string, s streams) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(s.err)
	secret := fs.String("secret", os.Getenv("CYBERX_API_SECRET"), "Server secret (default $CYBERX_API_SECRET)")
	subject := fs.String("subject", "cyberx-client", "Token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "Lifetime (0 = no expiry)")
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if *secret == "" {
		return errors.New("no secret: pass -secret or set CYBERX_API_SECRET")
	}

	token, err := server.IssueToken([]byte(*secret), *subject, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, token)
	return err
}
