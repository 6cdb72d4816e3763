package cmd

import (
	"context"
	"io"
	"os"

	"github.com/illarion/securestore/internal/config"
	"github.com/illarion/securestore/internal/core"
	"github.com/illarion/securestore/internal/identity"
	"github.com/illarion/securestore/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app carries what every command needs. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	configFile string
	cfg        config.Config
	log        *logrus.Logger

	identity identity.Provider
	commands *core.Commands
	in       io.Reader
}

// Execute runs the securestore CLI
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree using the platform machine identity
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{identity: identity.System(), in: os.Stdin})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "securestore",
		Short:         "Encrypted local storage for secrets",
		Long:          "securestore keeps tokens and API keys encrypted at rest under a key derived from this machine.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			a.log, err = logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.commands = core.NewCommands()
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.commands != nil {
				return a.commands.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default <user config dir>/securestore/securestore.yaml)")
	flags.String("app-name", "", "application name mixed into the master key (default securestore)")
	flags.String("data-dir", "", "data directory (default <user config dir>/<app-name>)")
	flags.String("log-level", "", "log level: debug, info, warn, error (default warn)")
	flags.String("log-format", "", "log format: text or json (default text)")

	root.AddCommand(
		storeCmd(a),
		getCmd(a),
		rmCmd(a),
		existsCmd(a),
		lsCmd(a),
		clearCmd(a),
		storeBatchCmd(a),
		getBatchCmd(a),
		statusCmd(a),
		exportCmd(a),
		importCmd(a),
		diffCmd(a),
		keyringCmd(a),
		configCmd(a),
	)
	return root
}

// storage initializes the handle on first use and returns it
func (a *app) storage(ctx context.Context) (*core.Commands, error) {
	if _, err := a.commands.Storage(); err == nil {
		return a.commands, nil
	}

	err := a.commands.Init(ctx, core.Config{
		AppName:  a.cfg.AppName,
		DataDir:  a.cfg.DataDir,
		Identity: a.identity,
		Logger:   a.log,
	})
	if err != nil {
		return nil, err
	}
	return a.commands, nil
}

// manager returns the storage manager behind the handle
func (a *app) manager(ctx context.Context) (*core.SecureStorage, error) {
	c, err := a.storage(ctx)
	if err != nil {
		return nil, err
	}
	return c.Storage()
}
