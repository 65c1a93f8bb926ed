package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/railfleet-backend/internal/app"
	domainagg "github.com/yungbote/railfleet-backend/internal/domain/aggregates"
	"github.com/yungbote/railfleet-backend/internal/ledger"
)

type appFactory func(ctx context.Context) (*app.App, error)

type cli struct {
	newApp appFactory
	app    *app.App
	stdout io.Writer

	actorID    string
	actorEmail string
}

// run builds the command tree, executes it and releases the App.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, factory appFactory) error {
	c := &cli{newApp: factory, stdout: stdout}
	defer c.close()

	root := c.newRootCmd()
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (c *cli) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fleetctl",
		Short: "Operate railcar release, rider-car, amendment and triage workflows",
		Long: `fleetctl drives the fleet workflows against the configured database.

Every transition is attributed to an actor (--actor, or $FLEET_ACTOR) and
recorded in the transition ledger. Output is JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.actorID, "actor", "", "Actor id recorded on transitions (default $FLEET_ACTOR)")
	root.PersistentFlags().StringVar(&c.actorEmail, "actor-email", "", "Actor email recorded on transitions")

	root.AddCommand(
		c.newMigrateCmd(),
		c.newReleaseCmd(),
		c.newRiderCarCmd(),
		c.newAmendmentCmd(),
		c.newTriageCmd(),
		c.newLedgerCmd(),
	)
	return root
}

func (c *cli) application(cmd *cobra.Command) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := c.newApp(cmd.Context())
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

func (c *cli) actor() ledger.Actor {
	id := strings.TrimSpace(c.actorID)
	if id == "" && c.app != nil {
		id = c.app.Cfg.Actor
	}
	return ledger.Actor{ID: id, Email: strings.TrimSpace(c.actorEmail)}
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, domainagg.NewError(domainagg.CodeValidation, "fleetctl", fmt.Sprintf("invalid %s %q", name, raw), err)
	}
	return id, nil
}

func parseOptionalID(name, raw string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(name, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseProcess(raw string) (ledger.ProcessType, error) {
	p := ledger.ProcessType(strings.TrimSpace(raw))
	if !p.Valid() {
		return "", domainagg.NewError(domainagg.CodeValidation, "fleetctl",
			fmt.Sprintf("unknown process %q (release, rider_car, amendment, triage)", raw), nil)
	}
	return p, nil
}

// exitCode maps aggregate error codes to distinct process exit statuses.
func exitCode(err error) int {
	var aggErr *domainagg.Error
	if !errors.As(err, &aggErr) {
		return 1
	}
	switch aggErr.Code {
	case domainagg.CodeValidation:
		return 2
	case domainagg.CodeNotFound:
		return 3
	case domainagg.CodeConflict:
		return 4
	case domainagg.CodeInvariantViolation, domainagg.CodePreconditionFailed:
		return 5
	case domainagg.CodeRetryable:
		return 75
	default:
		return 1
	}
}
