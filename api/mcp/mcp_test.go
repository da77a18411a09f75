package mcp_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/api/mcp"
	"github.com/webtechie/docschat/pkg/action"
	"github.com/webtechie/docschat/pkg/answer"
	"github.com/webtechie/docschat/pkg/corpus"
	"github.com/webtechie/docschat/pkg/eventstream/nop"
	"github.com/webtechie/docschat/pkg/index"
	testutils "github.com/webtechie/docschat/pkg/utils/test"
	"github.com/webtechie/docschat/pkg/vector/memory"
)

func newReadyStack() (*index.Index, *answer.Controller, *action.Dispatcher) {
	logger := zap.NewNop()

	embedder := testutils.NewMockEmbedder()
	embedder.Embeddings["GPIO pins are configured as DigitalOutput."] = []float32{1, 0, 0}
	embedder.Embeddings["How do I configure GPIO?"] = []float32{1, 0, 0}

	ix := index.New(embedder, memory.NewDriver(logger), logger)
	_, err := ix.Ingest(context.Background(), []corpus.ContentSection{{
		ObjectID: uuid.New(),
		GroupID:  "gpio",
		Link:     "https://docs.example/gpio",
		Content:  "GPIO pins are configured as DigitalOutput.",
	}}, nil)
	Expect(err).NotTo(HaveOccurred())

	dispatch := action.NewDispatcher(64)
	ctrl := answer.NewController(
		answer.Config{Provider: "mock"},
		ix,
		testutils.NewMockGenerator("Configure ", "it ", "as DigitalOutput."),
		dispatch,
		action.NewHistory(),
		nop.NewPublisher(),
		logger,
	)

	return ix, ctrl, dispatch
}

var _ = Describe("MCP Server", func() {
	var (
		server   *mcp.Server
		ix       *index.Index
		ctrl     *answer.Controller
		dispatch *action.Dispatcher
	)

	BeforeEach(func() {
		ix, ctrl, dispatch = newReadyStack()

		var err error
		server, err = mcp.NewServer(mcp.Config{
			Index:      ix,
			Controller: ctrl,
			Logger:     zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		dispatch.Close()
	})

	Describe("NewServer", func() {
		It("returns an error when the index is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Controller: ctrl,
				Logger:     zap.NewNop(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("index is required"))
		})

		It("returns an error when the controller is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Index:  ix,
				Logger: zap.NewNop(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("controller is required"))
		})

		It("returns an error when the logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Index:      ix,
				Controller: ctrl,
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger is required"))
		})

		It("creates a server with valid config", func() {
			Expect(server).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Describe("Noop mode", func() {
		It("creates an empty server without dependencies", func() {
			s, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s).NotTo(BeNil())
		})
	})
})
