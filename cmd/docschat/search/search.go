// Package searchcmder provides the search command for querying the indexed
// documentation through the docschat API.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/api"
	"github.com/webtechie/docschat/pkg/cliui"
	"github.com/webtechie/docschat/pkg/config"
	"github.com/webtechie/docschat/pkg/logger"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	linkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	queryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type searchCommander struct {
	query    string
	topK     int
	minScore float64
	quiet    bool

	apiTarget string

	debug  bool
	logger *zap.Logger
}

const searchLongDesc string = `Search indexed documentation via the docschat API.

Returns the most relevant documentation passages for the query text, ranked by
similarity score. Requires a running docschat API server ("docschat serve")
that has finished indexing the corpus.

Use --quiet to output only the documentation links, one per line.

Example:
  docschat search "how do I toggle a GPIO pin"
  docschat search "PWM duty cycle" --top 3
  docschat search "I2C addressing" --min-score 0.5 --api-target http://localhost:8081`

const searchShortDesc string = "Search indexed documentation"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
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
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", defaults.Retrieval.MaxResults, "Number of results to return")
	cmd.Flags().Float64Var(&cmder.minScore, "min-score", defaults.Retrieval.MinScore, "Minimum similarity score (0 to 1)")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only documentation links, one per line")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Docschat API server URL")

	return cmd
}

func (c *searchCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	var output *api.SearchResponse
	if c.quiet {
		var err error
		output, err = SearchAPI(c.apiTarget, c.query, c.topK, c.minScore)
		if err != nil {
			return err
		}
	} else {
		if err := cliui.Step(os.Stdout, "Searching documentation", func() error {
			var searchErr error
			output, searchErr = SearchAPI(c.apiTarget, c.query, c.topK, c.minScore)
			return searchErr
		}); err != nil {
			return err
		}
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Println("No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range output.Results {
			fmt.Println(result.Link)
		}
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Search Results for:"),
		queryStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, result := range output.Results {
		c.printResult(i+1, result)
	}

	return nil
}

func (c *searchCommander) printResult(rank int, result api.SearchResult) {
	fmt.Printf("  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		dimStyle.Render(result.GroupID),
	)

	preview := result.Text
	if len(preview) > 160 {
		preview = preview[:157] + "..."
	}
	preview = strings.ReplaceAll(preview, "\n", " ")

	fmt.Printf("  %s\n", previewStyle.Render(preview))
	if result.Link != "" {
		fmt.Printf("  %s\n", linkStyle.Render(result.Link))
	}

	fmt.Println()
}

// SearchAPI calls the docschat search API and returns the parsed response.
func SearchAPI(apiTarget, query string, topK int, minScore float64) (*api.SearchResponse, error) {
	searchURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	searchURL.Path = "/v1/search"
	q := searchURL.Query()
	q.Set("query", query)
	q.Set("top_k", strconv.Itoa(topK))
	q.Set("min_score", strconv.FormatFloat(minScore, 'f', -1, 64))
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
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
		return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output api.SearchResponse
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return &output, nil
}
