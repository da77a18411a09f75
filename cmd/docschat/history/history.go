// Package historycmder provides the history command, a TUI over past
// questions and their streamed answers.
package historycmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/webtechie/docschat/api"
	"github.com/webtechie/docschat/pkg/config"
)

const historyLongDesc string = `Browse past questions and answers in a TUI.

Lists every question the docschat server has answered (or is still answering),
newest activity included: the view polls the API so in-flight answers stream
into the detail pane as they are generated.

Examples:
  docschat history
  docschat history --api-target http://localhost:8081
  docschat history --poll 5s`

const historyShortDesc string = "Browse question/answer history"

type historyCommander struct {
	apiTarget string
	poll      time.Duration
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Docschat API server URL")
	cmd.Flags().DurationVar(&cmder.poll, "poll", 2*time.Second, "How often to refresh from the API")

	return cmd
}

func (c *historyCommander) run(ctx context.Context) error {
	actions, err := fetchActions(c.apiTarget)
	if err != nil {
		return err
	}

	return runHistoryTUI(ctx, c.apiTarget, c.poll, actions)
}

// actionsEnvelope mirrors the GET /v1/actions response body.
type actionsEnvelope struct {
	Count   int                  `json:"count"`
	Actions []api.ActionResponse `json:"actions"`
}

// fetchActions lists all actions from the API, oldest first.
func fetchActions(apiTarget string) ([]api.ActionResponse, error) {
	listURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	listURL.Path = "/v1/actions"

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, listURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to docschat API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("actions request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var envelope actionsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse actions response: %w", err)
	}

	return envelope.Actions, nil
}
