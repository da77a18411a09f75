// Package servecmder provides the serve command for running the docschat API.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/api"
	"github.com/webtechie/docschat/api/mcp"
	"github.com/webtechie/docschat/pkg/action"
	"github.com/webtechie/docschat/pkg/answer"
	"github.com/webtechie/docschat/pkg/config"
	embeddingutils "github.com/webtechie/docschat/pkg/embeddings/utils"
	eventstreamutils "github.com/webtechie/docschat/pkg/eventstream/utils"
	llmutils "github.com/webtechie/docschat/pkg/llm/utils"
	"github.com/webtechie/docschat/pkg/index"
	"github.com/webtechie/docschat/pkg/logger"
	vectorutils "github.com/webtechie/docschat/pkg/vector/utils"
)

// dispatcherDepth buffers queued action mutations; producers block, not drop,
// when the consumer falls behind.
const dispatcherDepth = 256

type ServeCommander struct {
	corpusPath     string
	apiListen      string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	embeddingDims  uint
	vectorProv     string
	vectorTgt      string
	llmProvider    string
	llmTarget      string
	llmModel       string
	eventsProvider string
	eventsBrokers  string
	eventsTopic    string
	mcpDisable     bool
	debug          bool

	viper  *viper.Viper
	logger *zap.Logger
}

const serveLongDesc string = `Run the docschat API server.

Loads the documentation corpus, builds the embedding index, and serves:
  POST /v1/ask          Submit a question (answers stream in the background)
  GET  /v1/actions      List all questions and answers, oldest first
  GET  /v1/actions/:id  Fetch one question with its current answer
  GET  /v1/search       Search indexed documentation directly
  /mcp                  MCP tools (docs_search, docs_ask) unless disabled

Configuration follows flag > environment (DOCSCHAT_*) > config.toml > default.`

const serveShortDesc string = "Run the docschat API server"

// serveFlags is the flag registry for this command; names, shorthands, and
// viper keys live in one place.
var serveFlags = config.FlagSet{
	config.FlagCorpusPath: {
		Name: "corpus", Shorthand: "c", ViperKey: "corpus.path",
		Description: "Path to the JSON documentation corpus",
	},
	config.FlagAPIListen: {
		Name: "api-listen", Shorthand: "a", ViperKey: "api.listen",
		Description: "Address for the API server to listen on",
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
	config.FlagEmbeddingDims: {
		Name: "embedding-dimensions", ViperKey: "embedding.dimensions",
		Description: "Embedding vector dimensions",
	},
	config.FlagVectorStoreProv: {
		Name: "vector-store-provider", ViperKey: "vector_store.provider",
		Description: "Vector store provider (memory, sqlitevec, qdrant)",
	},
	config.FlagVectorStoreTgt: {
		Name: "vector-store-target", ViperKey: "vector_store.target",
		Description: "Vector store target (path or host:port, provider dependent)",
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
	config.FlagEventsProvider: {
		Name: "events-provider", ViperKey: "events.provider",
		Description: "Answer event publisher (nop, kafka)",
	},
	config.FlagEventsBrokers: {
		Name: "events-brokers", ViperKey: "events.brokers",
		Description: "Comma-separated Kafka broker addresses",
	},
	config.FlagEventsTopic: {
		Name: "events-topic", ViperKey: "events.topic",
		Description: "Kafka topic for answer-completed events",
	},
}

var serveFlagKeys = []string{
	config.FlagCorpusPath,
	config.FlagAPIListen,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, err := cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %v", err)
			}

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)
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

	config.AddStringFlag(cmd, serveFlags, config.FlagCorpusPath, &cmder.corpusPath)
	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.apiListen)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreTgt, &cmder.vectorTgt)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMTarget, &cmder.llmTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMModel, &cmder.llmModel)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsProvider, &cmder.eventsProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsTopic, &cmder.eventsTopic)

	cmd.Flags().BoolVar(&cmder.mcpDisable, "mcp-disable", false, "Disable the MCP endpoint")

	return cmd
}

// resolve reads final values through viper so the flag > env > file > default
// precedence applies uniformly.
func (c *ServeCommander) resolve() {
	v := c.viper
	c.corpusPath = v.GetString("corpus.path")
	c.apiListen = v.GetString("api.listen")
	c.embeddingProv = v.GetString("embedding.provider")
	c.embeddingTgt = v.GetString("embedding.target")
	c.embeddingModel = v.GetString("embedding.model")
	c.embeddingDims = v.GetUint("embedding.dimensions")
	c.vectorProv = v.GetString("vector_store.provider")
	c.vectorTgt = v.GetString("vector_store.target")
	c.llmProvider = v.GetString("llm.provider")
	c.llmTarget = v.GetString("llm.target")
	c.llmModel = v.GetString("llm.model")
	c.eventsProvider = v.GetString("events.provider")
	c.eventsBrokers = v.GetString("events.brokers")
	c.eventsTopic = v.GetString("events.topic")
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

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

	store, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: c.vectorProv,
		Target:       c.vectorTgt,
		Collection:   c.viper.GetString("vector_store.collection"),
		Dimensions:   c.embeddingDims,
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

	dispatch := action.NewDispatcher(dispatcherDepth)
	defer dispatch.Close()

	publisher := eventstreamutils.NewPublisher(eventstreamutils.NewPublisherOpts{
		Provider: c.eventsProvider,
		Brokers:  config.EventsConfig{Brokers: c.eventsBrokers}.BrokerList(),
		Topic:    c.eventsTopic,
		Logger:   c.logger,
	})
	defer publisher.Close()

	controller := answer.NewController(answer.Config{
		CorpusPath: c.corpusPath,
		MaxResults: c.viper.GetInt("retrieval.max_results"),
		MinScore:   float32(c.viper.GetFloat64("retrieval.min_score")),
		Provider:   c.llmProvider,
		Model:      c.llmModel,
	}, ix, generator, dispatch, action.NewHistory(), publisher, c.logger)

	controller.History().Add(action.NewFinishedSearchAction("Application started"))

	// Ingestion narrates into the second history entry while the API comes up.
	// A missing corpus degrades the service instead of stopping it: the index
	// stays not-ready and questions get the not-ready answer.
	go func() {
		initAction := action.NewSearchAction("Initializing search engine, please stand by...")
		if err := controller.Init(ctx, initAction); err != nil {
			c.logger.Warn("serving degraded, corpus not indexed", zap.Error(err))
		}
	}()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Index:      ix,
		Controller: controller,
		Noop:       c.mcpDisable,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiServer := api.NewServer(api.Config{
		ListenAddr: c.apiListen,
	}, controller, ix, mcpServer.Handler(), c.logger)

	c.logger.Info("starting docschat",
		zap.String("api_addr", c.apiListen),
		zap.String("corpus", c.corpusPath),
		zap.String("llm_model", c.llmModel),
		zap.Bool("mcp", !c.mcpDisable),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}
