// Command fleetctl is the operator CLI for the car release, rider-car,
// amendment and triage workflows and the transition ledger.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/railfleet-backend/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, app.New); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		cancel()
		os.Exit(exitCode(err))
	}
}
