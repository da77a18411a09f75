// Package askcmder provides the ask command for an interactive
// question/answer session against the local documentation corpus.
package askcmder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/action"
	"github.com/webtechie/docschat/pkg/answer"
	"github.com/webtechie/docschat/pkg/cliui"
	"github.com/webtechie/docschat/pkg/config"
	embeddingutils "github.com/webtechie/docschat/pkg/embeddings/utils"
	eventstreamutils "github.com/webtechie/docschat/pkg/eventstream/utils"
	"github.com/webtechie/docschat/pkg/index"
	llmutils "github.com/webtechie/docschat/pkg/llm/utils"
	"github.com/webtechie/docschat/pkg/logger"
	vectorutils "github.com/webtechie/docschat/pkg/vector/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("docs> ")
)

type askCommander struct {
	corpusPath     string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	llmProvider    string
	llmTarget      string
	llmModel       string
	debug          bool

	viper  *viper.Viper
	logger *zap.Logger
}

const askLongDesc string = `Start an interactive question/answer session.

The documentation corpus is loaded and indexed locally, then each question
is answered from the retrieved passages, streaming tokens as they arrive.
Related documentation links are printed after each answer.

Examples:
  docschat ask
  docschat ask --corpus documentation.json --model llama3.2`

const askShortDesc string = "Interactive documentation Q&A in the terminal"

var askFlags = config.FlagSet{
	config.FlagCorpusPath: {
		Name: "corpus", Shorthand: "c", ViperKey: "corpus.path",
		Description: "Path to the JSON documentation corpus",
	},
	config.FlagEmbeddingProv: {
		Name: "embedding-provider", ViperKey: "embedding.provider",
		Description: "Embedding provider (ollama)",
	},
	config.FlagEmbeddingTgt: {
		Name: "embedding-target", ViperKey: "embedding.target",
		Description: "Embedding provider URL",
	},
	config.FlagEmbeddingModel: {
		Name: "embedding-model", ViperKey: "embedding.model",
		Description: "Embedding model name",
	},
	config.FlagLLMProvider: {
		Name: "llm-provider", ViperKey: "llm.provider",
		Description: "LLM provider (ollama, openai)",
	},
	config.FlagLLMTarget: {
		Name: "llm-target", ViperKey: "llm.target",
		Description: "LLM provider URL",
	},
	config.FlagLLMModel: {
		Name: "model", Shorthand: "m", ViperKey: "llm.model",
		Description: "LLM model used for answer generation",
	},
}

var askFlagKeys = []string{
	config.FlagCorpusPath,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask",
		Short: askShortDesc,
		Long:  askLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, err := cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %v", err)
			}

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, askFlags, askFlagKeys)
			cmder.viper = v

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.resolve()
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, askFlags, config.FlagCorpusPath, &cmder.corpusPath)
	config.AddStringFlag(cmd, askFlags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, askFlags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, askFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddStringFlag(cmd, askFlags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, askFlags, config.FlagLLMTarget, &cmder.llmTarget)
	config.AddStringFlag(cmd, askFlags, config.FlagLLMModel, &cmder.llmModel)

	return cmd
}

func (c *askCommander) resolve() {
	v := c.viper
	c.corpusPath = v.GetString("corpus.path")
	c.embeddingProv = v.GetString("embedding.provider")
	c.embeddingTgt = v.GetString("embedding.target")
	c.embeddingModel = v.GetString("embedding.model")
	c.llmProvider = v.GetString("llm.provider")
	c.llmTarget = v.GetString("llm.target")
	c.llmModel = v.GetString("llm.model")
}

func (c *askCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ctx := context.Background()

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.embeddingProv,
		TargetURL:    c.embeddingTgt,
		Model:        c.embeddingModel,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	// The interactive session always indexes into the in-process store;
	// the lifetime of the index is the lifetime of the session.
	store, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: "memory",
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	defer store.Close()

	ix := index.New(embedder, store, c.logger)

	generator, err := llmutils.NewGenerator(&llmutils.NewGeneratorOpts{
		ProviderType: c.llmProvider,
		TargetURL:    c.llmTarget,
		Model:        c.llmModel,
		APIKey:       os.Getenv("DOCSCHAT_LLM_API_KEY"),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	dispatch := action.NewDispatcher(64)
	defer dispatch.Close()

	ctrl := answer.NewController(answer.Config{
		CorpusPath: c.corpusPath,
		MaxResults: c.viper.GetInt("retrieval.max_results"),
		MinScore:   float32(c.viper.GetFloat64("retrieval.min_score")),
		Provider:   c.llmProvider,
		Model:      c.llmModel,
	}, ix, generator, dispatch, action.NewHistory(), eventstreamutils.NewPublisher(eventstreamutils.NewPublisherOpts{}), c.logger)

	if err := c.initIndex(ctx, ctrl); err != nil {
		// Degraded session: questions are answered with the not-ready text.
		fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
	}

	fmt.Println()
	fmt.Printf("  %s %s\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(c.llmModel),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type a question and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		c.askAndStream(ctx, ctrl, input)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// initIndex runs corpus ingestion, echoing the progress narration live.
func (c *askCommander) initIndex(ctx context.Context, ctrl *answer.Controller) error {
	a := action.NewSearchAction("Initializing search engine, please stand by...")
	a.Subscribe(func(m action.Mutation) {
		if m.Kind == action.MutationAnswer {
			fmt.Print(cliui.DimStyle.Render(m.Text))
		}
	})

	err := ctrl.Init(ctx, a)
	fmt.Println()
	return err
}

// askAndStream answers one question, printing tokens as they arrive and the
// related links once the answer is complete.
func (c *askCommander) askAndStream(ctx context.Context, ctrl *answer.Controller, question string) {
	a := action.NewSearchAction(question)

	var links []string
	done := make(chan struct{})
	a.Subscribe(func(m action.Mutation) {
		switch m.Kind {
		case action.MutationAnswer:
			fmt.Print(m.Text)
		case action.MutationRelatedLink:
			links = append(links, m.Text)
		case action.MutationFinished:
			close(done)
		}
	})

	fmt.Print(assistantPrompt)
	ctrl.Ask(ctx, a)

	// Ask returns when generation ends; the finished flip still has to drain
	// through the dispatcher.
	<-done

	if len(links) > 0 {
		fmt.Println()
		for _, link := range links {
			fmt.Printf("  %s\n", cliui.LinkStyle.Render(link))
		}
	}

	fmt.Println()
	fmt.Println()
}
