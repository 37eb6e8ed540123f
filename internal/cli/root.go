// Package cli contains the cobra commands of the bulkedit binary.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"goa.design/clue/log"

	"github.com/example/bulkedit/internal/config"
	"github.com/example/bulkedit/internal/ctxutil"
	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/wire"
)

// Persistent flag values shared by every command.
var (
	flagUser       string
	flagDomain     string
	flagRecordType string
	flagSession    string
	flagDebug      bool
)

// AddPersistentFlags registers the identity and logging flags on root.
func AddPersistentFlags(root *cobra.Command) {
	user := os.Getenv("BULKEDIT_USER")
	if user == "" {
		user = os.Getenv("USER")
	}
	root.PersistentFlags().StringVarP(&flagUser, "user", "u", user, "User acting on sessions ($BULKEDIT_USER)")
	root.PersistentFlags().StringVarP(&flagDomain, "domain", "d", "demo", "Domain the records belong to")
	root.PersistentFlags().StringVarP(&flagRecordType, "type", "t", "plant", "Record type to edit")
	root.PersistentFlags().StringVarP(&flagSession, "session", "s", "", "Session id (defaults to the open session for --type)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}

// Setup loads the configuration, builds the logging context and wires the
// services. It runs before every command.
func Setup(cmd *cobra.Command, _ []string) error {
	home, err := config.Home()
	if err != nil {
		return err
	}
	cfg, err := config.Load(home)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = log.Context(ctx, log.WithFormat(logFormat(cfg.LogFormat)))
	if flagDebug {
		ctx = log.Context(ctx, log.WithDebug())
	}
	ctx = ctxutil.WithUserID(ctx, flagUser)

	if err := wire.Init(ctx, cfg); err != nil {
		return err
	}
	cmd.SetContext(ctx)
	return nil
}

// Teardown releases the connections opened by Setup. It is safe to call
// when Setup never ran.
func Teardown() {
	wire.Close()
}

func logFormat(name string) log.FormatFunc {
	switch name {
	case config.LogFormatJSON:
		return log.FormatJSON
	case config.LogFormatText:
		return log.FormatText
	default:
		if log.IsTerminal() {
			return log.FormatTerminal
		}
		return log.FormatText
	}
}

func currentScope() primary.Scope {
	return primary.Scope{UserID: flagUser, Domain: flagDomain, RecordType: flagRecordType}
}

func currentOwner() primary.Owner {
	return currentScope().Owner()
}

// sessionID returns --session, or the open session of the current scope.
func sessionID(ctx context.Context) (string, error) {
	if flagSession != "" {
		return flagSession, nil
	}
	session, err := wire.SessionService().GetActive(ctx, currentScope())
	if err != nil {
		return "", fmt.Errorf("failed to get open session: %w", err)
	}
	if session == nil {
		return "", fmt.Errorf("no open %s session for %s; run `bulkedit session start`", flagRecordType, flagUser)
	}
	return session.ID, nil
}
