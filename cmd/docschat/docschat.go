// Package docschatcmder
package docschatcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/webtechie/docschat/cmd/docschat/ask"
	configcmder "github.com/webtechie/docschat/cmd/docschat/config"
	historycmder "github.com/webtechie/docschat/cmd/docschat/history"
	searchcmder "github.com/webtechie/docschat/cmd/docschat/search"
	servecmder "github.com/webtechie/docschat/cmd/docschat/serve"
	versioncmder "github.com/webtechie/docschat/cmd/version"
)

const docschatLongDesc string = `Docschat answers questions from your documentation.

It loads a JSON corpus of documentation sections, indexes them as embeddings,
and answers questions grounded only on the retrieved passages.

Common commands:
  docschat ask         Interactive question/answer session in the terminal
  docschat serve       Run the docschat API (and MCP) server
  docschat search      Search the indexed documentation via the API
  docschat history     Browse past questions and answers in a TUI`

const docschatShortDesc string = "Docschat - documentation Q&A"

func NewDocschatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docschat",
		Short: docschatShortDesc,
		Long:  docschatLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .docschat/ config directory")

	// Add subcommands
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
