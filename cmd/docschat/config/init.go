package configcmder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/webtechie/docschat/pkg/cliui"
	"github.com/webtechie/docschat/pkg/config"
)

const dirName = ".docschat"

const initLongDesc string = `Initialize a local .docschat/ directory in the current working directory.

Creates a .docschat/ directory that takes precedence over the default
~/.docschat/ directory for configuration. With a preset name, also writes a
config.toml pre-filled for that provider stack.

Available presets: ollama, openai.

Examples:
  docschat config init
  docschat config init ollama
  docschat config init openai`

const initShortDesc string = "Initialize a local .docschat/ directory"

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [preset]",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			preset := ""
			if len(args) == 1 {
				preset = args[0]
			}
			return runInit(preset)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runInit(preset string) error {
	var cfg *config.Config
	if preset != "" {
		var err error
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return fmt.Errorf("%w\n\nAvailable presets: %s",
				err, strings.Join(config.ValidPresetNames(), ", "))
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Printf("  %s %s\n", cliui.DimStyle.Render("Already initialized:"), dir)
	} else {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .docschat directory: %w", err)
		}
		fmt.Printf("  %s Initialized %s\n", cliui.SuccessMark, dir)
	}

	if cfg == nil {
		return nil
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("  %s Wrote %s preset to %s\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(preset),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)
	return nil
}
