package config

const (
	defaultCorpusPath = "documentation.json"

	defaultProvider = "ollama"
	defaultTarget   = "http://localhost:11434"

	defaultEmbeddingModel      = "all-minilm"
	defaultEmbeddingDimensions = 384

	defaultVectorProvider   = "memory"
	defaultVectorCollection = "docschat"

	defaultLLMModel = "llama3.2"

	defaultMaxResults = 10
	defaultMinScore   = 0.7

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "docschat.answers"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Corpus: CorpusConfig{
			Path: defaultCorpusPath,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultProvider,
			Target:     defaultTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		LLM: LLMConfig{
			Provider: defaultProvider,
			Target:   defaultTarget,
			Model:    defaultLLMModel,
		},
		Retrieval: RetrievalConfig{
			MaxResults: defaultMaxResults,
			MinScore:   defaultMinScore,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
