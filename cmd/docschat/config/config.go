// Package configcmder provides the config command for managing persistent
// docschat configuration stored in the .docschat/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent docschat configuration.

Configuration is stored as config.toml in the .docschat/ directory and provides
default values for command flags. CLI flags and DOCSCHAT_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  corpus.path,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  vector_store.provider, vector_store.target, vector_store.collection,
  llm.provider, llm.target, llm.model,
  retrieval.max_results, retrieval.min_score,
  api.listen, events.provider, events.brokers, events.topic,
  client.api_target

Use subcommands to initialize, get, set, or list configuration values:
  docschat config init [preset]         Create a local .docschat/ directory
  docschat config set <key> <value>     Set a configuration value
  docschat config get <key>             Get a configuration value
  docschat config list                  List all configuration values

Examples:
  docschat config init ollama
  docschat config set llm.model llama3.2
  docschat config get retrieval.min_score
  docschat config list`

const configShortDesc string = "Manage persistent docschat configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
