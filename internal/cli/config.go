package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/alnah/go-dub/internal/config"
)

// validConfigKeys lists the keys the set/get subcommands accept. The rest
// of the config file is edited by hand; `dub config init` writes an
// annotated sample.
var validConfigKeys = []string{
	config.KeyOutputDir,
}

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/go-dub/config.toml. The output
directory can also be set via the DUB_OUTPUT_DIR environment variable.
API keys are never stored in the file; they come from the environment
(ASSEMBLYAI_API_KEY, OPENAI_API_KEY).

Supported settings for get/set:
  output-dir    Directory for dubbed videos (env: DUB_OUTPUT_DIR)`,
		Example: `  dub config init
  dub config set output-dir ~/Videos/dubbed
  dub config get output-dir`,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ~/.config/go-dub/config.toml)")

	cmd.AddCommand(configInitCmd(env, &configPath))
	cmd.AddCommand(configSetCmd(env, &configPath))
	cmd.AddCommand(configGetCmd(env, &configPath))

	return cmd
}

// configInitCmd creates the "config init" subcommand.
func configInitCmd(env *Env, path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write an annotated sample config file",
		Long: `Write an annotated sample config file.

Refuses to overwrite an existing file.`,
		Example: `  dub config init`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := config.Init(*path)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Stderr, "Wrote %s\n", written)
			return nil
		},
	}
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env, path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

Supported keys:
  output-dir    Directory for dubbed videos`,
		Example: `  dub config set output-dir ~/Videos/dubbed`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if !isValidConfigKey(key) {
				return fmt.Errorf("unknown config key %q (valid keys: %v)", key, validConfigKeys)
			}
			if err := config.Set(*path, key, value); err != nil {
				return err
			}
			fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env, path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the effective value, after defaults and environment fallbacks.`,
		Example: `  dub config get output-dir`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !isValidConfigKey(key) {
				return fmt.Errorf("unknown config key %q (valid keys: %v)", key, validConfigKeys)
			}
			value, err := config.Get(*path, key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

// isValidConfigKey checks if a key is a valid configuration key.
func isValidConfigKey(key string) bool {
	return slices.Contains(validConfigKeys, key)
}
