package openai

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/llm"
)

type recordingHandler struct {
	tokens    []string
	completed int
	errs      []error
}

func (h *recordingHandler) OnToken(token string) { h.tokens = append(h.tokens, token) }
func (h *recordingHandler) OnComplete()          { h.completed++ }
func (h *recordingHandler) OnError(err error)    { h.errs = append(h.errs, err) }

func sseChunk(content string) string {
	return `data: {"choices":[{"delta":{"content":"` + content + `"}}]}` + "\n\n"
}

var _ = Describe("Generator", func() {
	var handler *recordingHandler

	BeforeEach(func() {
		handler = &recordingHandler{}
	})

	newGenerator := func(srv *httptest.Server) *Generator {
		return NewGenerator(Config{BaseURL: srv.URL, Model: "test-model", APIKey: "test-key"}, zap.NewNop())
	}

	It("streams delta content and completes on the done sentinel", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/chat/completions"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer test-key"))
			w.Header().Set("Content-Type", "text/event-stream")
			w.Write([]byte(sseChunk("A")))
			w.Write([]byte(sseChunk("B")))
			w.Write([]byte("data: [DONE]\n\n"))
		}))
		defer srv.Close()

		newGenerator(srv).Generate(context.Background(), "prompt", handler)

		Expect(handler.tokens).To(Equal([]string{"A", "B"}))
		Expect(handler.completed).To(Equal(1))
		Expect(handler.errs).To(BeEmpty())
	})

	It("completes when the stream ends without the sentinel", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(sseChunk("only")))
		}))
		defer srv.Close()

		newGenerator(srv).Generate(context.Background(), "prompt", handler)

		Expect(handler.tokens).To(Equal([]string{"only"}))
		Expect(handler.completed).To(Equal(1))
	})

	It("reports an error on non-200 responses", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
		}))
		defer srv.Close()

		newGenerator(srv).Generate(context.Background(), "prompt", handler)

		Expect(handler.errs).To(HaveLen(1))
		Expect(handler.errs[0]).To(MatchError(llm.ErrGeneration))
		Expect(handler.completed).To(BeZero())
	})

	It("skips empty deltas and keep-alive comments", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(": keep-alive\n\n"))
			w.Write([]byte(`data: {"choices":[{"delta":{}}]}` + "\n\n"))
			w.Write([]byte(sseChunk("real")))
			w.Write([]byte("data: [DONE]\n\n"))
		}))
		defer srv.Close()

		newGenerator(srv).Generate(context.Background(), "prompt", handler)

		Expect(handler.tokens).To(Equal([]string{"real"}))
		Expect(handler.completed).To(Equal(1))
	})
})
