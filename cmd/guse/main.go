// Package main is the entry point for the guse binary.
//
// guse keeps named Git identities (user.name, user.email and an SSH host
// alias) in ~/.git-switch-profiles.toml and applies one of them to the
// repository in the current directory.
//
// Usage:
//
//	guse add work --name "Jane Doe" --email jane@corp.com --ssh-host github-work
//	guse switch work     # set the identity and rewrite origin
//	guse show            # which profile does this repository use?
//
// The command tree is built in internal/cli; this file only wires up signal
// handling and the exit status.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/guse-cli/guse/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
