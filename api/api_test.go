package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/action"
	"github.com/webtechie/docschat/pkg/answer"
	"github.com/webtechie/docschat/pkg/corpus"
	"github.com/webtechie/docschat/pkg/eventstream/nop"
	"github.com/webtechie/docschat/pkg/index"
	testutils "github.com/webtechie/docschat/pkg/utils/test"
	"github.com/webtechie/docschat/pkg/vector/memory"
)

const (
	apiTestContent  = "Configure a pin as DigitalOutput to drive it high or low."
	apiTestLink     = "https://docs.example/gpio"
	apiTestQuestion = "How do I drive a GPIO pin?"
)

func newTestServer(ready bool) (*Server, *answer.Controller, *action.Dispatcher) {
	logger := zap.NewNop()

	embedder := testutils.NewMockEmbedder()
	embedder.Embeddings[apiTestContent] = []float32{1, 0, 0}
	embedder.Embeddings[apiTestQuestion] = []float32{1, 0, 0}

	ix := index.New(embedder, memory.NewDriver(logger), logger)
	if ready {
		sections := []corpus.ContentSection{{
			ObjectID: uuid.New(),
			GroupID:  "gpio",
			Link:     apiTestLink,
			Content:  apiTestContent,
		}}
		_, err := ix.Ingest(context.Background(), sections, nil)
		Expect(err).NotTo(HaveOccurred())
	}

	dispatch := action.NewDispatcher(64)
	ctrl := answer.NewController(
		answer.Config{Provider: "mock"},
		ix,
		testutils.NewMockGenerator("Use ", "DigitalOutput", "."),
		dispatch,
		action.NewHistory(),
		nop.NewPublisher(),
		logger,
	)

	return NewServer(Config{ListenAddr: ":0"}, ctrl, ix, nil, logger), ctrl, dispatch
}

func decodeBody[T any](resp *http.Response) T {
	var out T
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(data, &out)).To(Succeed())
	return out
}

var _ = Describe("Server", func() {
	var (
		server   *Server
		ctrl     *answer.Controller
		dispatch *action.Dispatcher
	)

	BeforeEach(func() {
		server, ctrl, dispatch = newTestServer(true)
	})

	AfterEach(func() {
		dispatch.Close()
	})

	Describe("GET /ping", func() {
		It("responds with pong", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decodeBody[string](resp)).To(Equal("pong"))
		})
	})

	Describe("POST /v1/ask", func() {
		It("accepts a question and streams the answer into the action", func() {
			body := bytes.NewBufferString(`{"question": "` + apiTestQuestion + `"}`)
			req := httptest.NewRequest(http.MethodPost, "/v1/ask", body)
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

			accepted := decodeBody[ActionResponse](resp)
			Expect(accepted.Question).To(Equal(apiTestQuestion))
			Expect(accepted.ID).NotTo(BeEmpty())

			Eventually(func() bool {
				getResp, err := server.app.Test(httptest.NewRequest(
					http.MethodGet, "/v1/actions/"+accepted.ID, nil))
				Expect(err).NotTo(HaveOccurred())
				return decodeBody[ActionResponse](getResp).Finished
			}).Should(BeTrue())

			getResp, err := server.app.Test(httptest.NewRequest(
				http.MethodGet, "/v1/actions/"+accepted.ID, nil))
			Expect(err).NotTo(HaveOccurred())
			final := decodeBody[ActionResponse](getResp)
			Expect(final.Answer).To(ContainSubstring("Use DigitalOutput."))
			Expect(final.Answer).To(ContainSubstring("Answer is complete for"))
			Expect(final.RelatedLinks).To(ContainSubstring(apiTestLink))
			Expect(final.Status).To(Equal(string(answer.StateCompleted)))
		})

		It("rejects an empty question", func() {
			body := bytes.NewBufferString(`{"question": ""}`)
			req := httptest.NewRequest(http.MethodPost, "/v1/ask", body)
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed body", func() {
			body := bytes.NewBufferString(`{`)
			req := httptest.NewRequest(http.MethodPost, "/v1/ask", body)
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /v1/actions", func() {
		It("lists actions oldest first", func() {
			first := action.NewSearchAction("first")
			second := action.NewSearchAction("second")
			ctrl.History().Add(first)
			ctrl.History().Add(second)

			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/actions", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			type listResponse struct {
				Count   int              `json:"count"`
				Actions []ActionResponse `json:"actions"`
			}
			list := decodeBody[listResponse](resp)
			Expect(list.Count).To(Equal(2))
			Expect(list.Actions[0].Question).To(Equal("first"))
			Expect(list.Actions[1].Question).To(Equal("second"))
		})
	})

	Describe("GET /v1/actions/:id", func() {
		It("rejects malformed ids", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/actions/not-a-uuid", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for unknown actions", func() {
			resp, err := server.app.Test(httptest.NewRequest(
				http.MethodGet, "/v1/actions/"+uuid.NewString(), nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /v1/search", func() {
		It("returns matching passages", func() {
			resp, err := server.app.Test(httptest.NewRequest(
				http.MethodGet, "/v1/search?query="+escapedTestQuestion(), nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			out := decodeBody[SearchResponse](resp)
			Expect(out.Count).To(Equal(1))
			Expect(out.Results[0].Link).To(Equal(apiTestLink))
			Expect(out.Results[0].Text).To(Equal(apiTestContent))
		})

		It("requires a query parameter", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/search", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a non-numeric top_k", func() {
			resp, err := server.app.Test(httptest.NewRequest(
				http.MethodGet, "/v1/search?query=x&top_k=lots", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects an out-of-range min_score", func() {
			resp, err := server.app.Test(httptest.NewRequest(
				http.MethodGet, "/v1/search?query=x&min_score=2", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("before the index is ready", func() {
		BeforeEach(func() {
			dispatch.Close()
			server, ctrl, dispatch = newTestServer(false)
		})

		It("search responds with 503", func() {
			resp, err := server.app.Test(httptest.NewRequest(
				http.MethodGet, "/v1/search?query=x", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})

		It("ask fails the action with the not-ready message", func() {
			body := bytes.NewBufferString(`{"question": "early"}`)
			req := httptest.NewRequest(http.MethodPost, "/v1/ask", body)
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
			accepted := decodeBody[ActionResponse](resp)

			Eventually(func() string {
				getResp, err := server.app.Test(httptest.NewRequest(
					http.MethodGet, "/v1/actions/"+accepted.ID, nil))
				Expect(err).NotTo(HaveOccurred())
				return decodeBody[ActionResponse](getResp).Answer
			}).Should(Equal(answer.NotReadyMessage))
		})
	})
})

func escapedTestQuestion() string {
	return url.QueryEscape(apiTestQuestion)
}
