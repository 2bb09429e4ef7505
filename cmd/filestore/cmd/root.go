// Package cmd implements the filestore command line client.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"filestore/internal/client"
)

const (
	hostKey    = "host"
	verboseKey = "verbose"
)

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree with its own configuration, so tests
// can run it repeatedly.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "filestore",
		Short: "Client for the filestore server",
		Long: `Client for the filestore server.

Files are sent as a zip archive. Before sending, the sha256 of every file is
checked against the server; content it already holds is copied server side
and not uploaded again.

The server address comes from --host, FILESTORE_HOST or the host key of
$HOME/.filestore/filestore.yaml, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v)
		},
	}
	root.PersistentFlags().String(hostKey, client.DefaultHost, "filestore server address")
	root.PersistentFlags().BoolP(verboseKey, "v", false, "log requests to stderr")
	_ = v.BindPFlag(hostKey, root.PersistentFlags().Lookup(hostKey))
	_ = v.BindPFlag(verboseKey, root.PersistentFlags().Lookup(verboseKey))

	newClient := func() (*client.Client, error) { return clientFromConfig(v) }
	root.AddCommand(
		newAddCmd(newClient),
		newUpdateCmd(newClient),
		newListCmd(newClient),
		newRemoveCmd(newClient),
		newWordCountCmd(newClient),
		newFreqWordsCmd(newClient),
	)
	return root
}

// initConfig reads in the config file and environment variables if set.
func initConfig(v *viper.Viper) error {
	v.SetDefault(hostKey, client.DefaultHost)
	if f := os.Getenv("FILESTORE_CONFIG"); f != "" {
		v.SetConfigFile(f)
	} else {
		v.AddConfigPath("$HOME/.filestore")
		v.AddConfigPath(".")
		v.SetConfigName("filestore")
	}
	v.SetEnvPrefix("filestore")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func clientFromConfig(v *viper.Viper) (*client.Client, error) {
	log := zap.NewNop()
	if v.GetBool(verboseKey) {
		cfg := zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
		l, err := cfg.Build()
		if err != nil {
			return nil, err
		}
		log = l
	}
	return client.New(v.GetString(hostKey), client.WithLogger(log))
}

type clientFactory func() (*client.Client, error)

// run adapts a client call to cobra's RunE.
func run(newClient clientFactory, fn func(ctx context.Context, c *client.Client, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		return fn(cmd.Context(), c, cmd, args)
	}
}
