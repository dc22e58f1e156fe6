package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/chat-analyzer/gateway/internal/app"
	"github.com/chat-analyzer/gateway/internal/transport"
)

var errNotAuthenticated = errors.New("not authenticated: pass --username and --password")

// signIn builds an application context and authenticates it, logging in
// first when credentials are given.
func signIn(ctx context.Context, opts *options) (*app.App, error) {
	a := app.New(app.Options{
		Client: transport.New(opts.cfg.APIBaseURL, transport.WithLogger(opts.log)),
		Logger: opts.log,
	})

	if opts.username != "" {
		if !a.Session.Login(ctx, opts.username, opts.password) {
			if msg := a.Session.State().LoginError; msg != "" {
				return nil, errors.New(msg)
			}
			return nil, errNotAuthenticated
		}
		return a, nil
	}

	a.Session.Bootstrap(ctx)
	if !a.Session.Authenticated() {
		return nil, errNotAuthenticated
	}
	return a, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// storeError turns a recorded store error into a command error.
func storeError(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}
