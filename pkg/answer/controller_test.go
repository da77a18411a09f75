package answer_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/action"
	"github.com/webtechie/docschat/pkg/answer"
	"github.com/webtechie/docschat/pkg/eventstream"
	"github.com/webtechie/docschat/pkg/index"
	"github.com/webtechie/docschat/pkg/llm"
	"github.com/webtechie/docschat/pkg/vector/memory"
)

// fakeEmbedder maps known texts to fixed vectors so retrieval is
// deterministic without a live model.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Close() error { return nil }

// scriptedGenerator replays a fixed token stream and terminal callback, and
// records every prompt it was handed.
type scriptedGenerator struct {
	tokens        []string
	err           error
	lateCallbacks bool

	mu      sync.Mutex
	prompts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string, handler llm.StreamHandler) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	for _, tok := range g.tokens {
		handler.OnToken(tok)
	}
	if g.err != nil {
		handler.OnError(g.err)
	} else {
		handler.OnComplete()
	}
	if g.lateCallbacks {
		handler.OnToken(" STRAGGLER")
		handler.OnComplete()
	}
}

func (g *scriptedGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// recordingPublisher captures emitted events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.AnswerCompletedEvent
}

func (p *recordingPublisher) PublishAnswer(_ context.Context, event *eventstream.AnswerCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilAnswerEvent
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) all() []*eventstream.AnswerCompletedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*eventstream.AnswerCompletedEvent, len(p.events))
	copy(out, p.events)
	return out
}

const corpusJSON = `[
  {
    "objectID": "c7a9f7de-9f3d-4a62-9f41-000000000001",
    "groupId": "gpio",
    "title": "Digital output",
    "link": "https://docs.example/gpio",
    "content": "Configure a pin as DigitalOutput to drive it high or low."
  },
  {
    "objectID": "c7a9f7de-9f3d-4a62-9f41-000000000002",
    "groupId": "pwm",
    "title": "PWM",
    "link": "https://docs.example/pwm",
    "content": "Pulse width modulation controls duty cycle."
  },
  {
    "objectID": "c7a9f7de-9f3d-4a62-9f41-000000000003",
    "groupId": "empty",
    "title": "Placeholder",
    "link": "https://docs.example/empty",
    "content": ""
  }
]`

const (
	gpioContent = "Configure a pin as DigitalOutput to drive it high or low."
	pwmContent  = "Pulse width modulation controls duty cycle."
	gpioAsk     = "How do I drive a GPIO pin?"
	offTopicAsk = "What is the meaning of life?"
)

var _ = Describe("Controller", func() {
	var (
		ctx        context.Context
		corpusPath string
		embedder   *fakeEmbedder
		generator  *scriptedGenerator
		publisher  *recordingPublisher
		dispatch   *action.Dispatcher
		ctrl       *answer.Controller
	)

	newController := func(path string) *answer.Controller {
		logger := zap.NewNop()
		ix := index.New(embedder, memory.NewDriver(logger), logger)
		return answer.NewController(
			answer.Config{CorpusPath: path, Provider: "scripted"},
			ix,
			generator,
			dispatch,
			action.NewHistory(),
			publisher,
			logger,
		)
	}

	BeforeEach(func() {
		ctx = context.Background()
		corpusPath = filepath.Join(GinkgoT().TempDir(), "corpus.json")
		Expect(os.WriteFile(corpusPath, []byte(corpusJSON), 0o644)).To(Succeed())

		embedder = &fakeEmbedder{vectors: map[string][]float32{
			gpioContent: {1, 0, 0},
			pwmContent:  {0, 1, 0},
			gpioAsk:     {1, 0, 0},
			offTopicAsk: {0, 0, 1},
		}}
		generator = &scriptedGenerator{tokens: []string{"Use ", "DigitalOutput", "."}}
		publisher = &recordingPublisher{}
		dispatch = action.NewDispatcher(64)
		ctrl = newController(corpusPath)
	})

	AfterEach(func() {
		dispatch.Close()
	})

	Describe("Init", func() {
		It("ingests the corpus and narrates progress into the action", func() {
			a := action.NewSearchAction("Initializing search engine, please stand by...")
			Expect(ctrl.Init(ctx, a)).To(Succeed())

			Eventually(a.Finished).Should(BeTrue())
			text := a.Answer()
			Expect(text).To(HavePrefix("Initiating..."))
			Expect(text).To(ContainSubstring("\nLoaded number of JSON content sections: 3"))
			Expect(text).To(ContainSubstring("\nConverted to number of text segments: 2"))
			Expect(text).To(ContainSubstring("\nNumber of embeddings: 2"))
			Expect(text).To(ContainSubstring("\nEmbeddings are added to the store"))
			Expect(text).To(HaveSuffix("\nChat model is ready"))

			Expect(ctrl.Ready()).To(BeTrue())
			Expect(ctrl.State(a.ID())).To(Equal(answer.StateCompleted))
		})

		It("records the init action in history", func() {
			a := action.NewSearchAction("init")
			Expect(ctrl.Init(ctx, a)).To(Succeed())
			_, ok := ctrl.History().Get(a.ID())
			Expect(ok).To(BeTrue())
		})

		It("degrades when the corpus file is missing", func() {
			missing := newController(filepath.Join(GinkgoT().TempDir(), "nope.json"))
			a := action.NewSearchAction("init")
			Expect(missing.Init(ctx, a)).NotTo(Succeed())

			Eventually(a.Finished).Should(BeTrue())
			Expect(a.Answer()).To(ContainSubstring("Could not find the JSON file"))
			Expect(missing.Ready()).To(BeFalse())
			Expect(missing.State(a.ID())).To(Equal(answer.StateFailed))
		})
	})

	Describe("Ask before Init", func() {
		It("fails fast with the not-ready message", func() {
			a := action.NewSearchAction(gpioAsk)
			ctrl.Ask(ctx, a)

			Eventually(a.Finished).Should(BeTrue())
			Expect(a.Answer()).To(Equal(answer.NotReadyMessage))
			Expect(a.RelatedLinks()).To(BeEmpty())
			Expect(ctrl.State(a.ID())).To(Equal(answer.StateFailed))
		})

		It("emits a failed answer event", func() {
			a := action.NewSearchAction(gpioAsk)
			ctrl.Ask(ctx, a)

			Eventually(func() int { return len(publisher.all()) }).Should(Equal(1))
			event := publisher.all()[0]
			Expect(event.Failed).To(BeTrue())
			Expect(event.ActionID).To(Equal(a.ID().String()))
		})
	})

	Describe("Ask with relevant passages", func() {
		BeforeEach(func() {
			Expect(ctrl.Init(ctx, action.NewSearchAction("init"))).To(Succeed())
		})

		It("streams tokens verbatim and appends the completion footer", func() {
			a := action.NewSearchAction(gpioAsk)
			ctrl.Ask(ctx, a)

			Eventually(a.Finished).Should(BeTrue())
			body := "Use DigitalOutput."
			footer := fmt.Sprintf("\n\nAnswer is complete for '%s', size: %d", gpioAsk, len(body))
			Expect(a.Answer()).To(Equal(body + footer))
			Expect(ctrl.State(a.ID())).To(Equal(answer.StateCompleted))
		})

		It("appends one related link per match, in order", func() {
			a := action.NewSearchAction(gpioAsk)
			ctrl.Ask(ctx, a)

			Eventually(a.Finished).Should(BeTrue())
			Expect(a.RelatedLinks()).To(Equal("\nhttps://docs.example/gpio"))
		})

		It("grounds the prompt on the matched passage", func() {
			a := action.NewSearchAction(gpioAsk)
			ctrl.Ask(ctx, a)

			Eventually(a.Finished).Should(BeTrue())
			prompt := generator.lastPrompt()
			Expect(prompt).To(ContainSubstring(gpioAsk))
			Expect(prompt).To(ContainSubstring(gpioContent + ". LINK: https://docs.example/gpio. GROUP_ID: gpio"))
			Expect(prompt).NotTo(ContainSubstring(pwmContent))
		})

		It("emits a successful answer event with the final size", func() {
			a := action.NewSearchAction(gpioAsk)
			ctrl.Ask(ctx, a)

			Eventually(func() int { return len(publisher.all()) }).Should(Equal(1))
			event := publisher.all()[0]
			Expect(event.Failed).To(BeFalse())
			Expect(event.Question).To(Equal(gpioAsk))
			Eventually(a.Finished).Should(BeTrue())
			Expect(event.AnswerSize).To(Equal(len(a.Answer())))
			Expect(event.RelatedLinks).To(Equal(1))
		})
	})

	Describe("Ask with no relevant passages", func() {
		BeforeEach(func() {
			Expect(ctrl.Init(ctx, action.NewSearchAction("init"))).To(Succeed())
		})

		It("uses the redirect prompt and appends no links", func() {
			a := action.NewSearchAction(offTopicAsk)
			ctrl.Ask(ctx, a)

			Eventually(a.Finished).Should(BeTrue())
			Expect(a.RelatedLinks()).To(BeEmpty())
			prompt := generator.lastPrompt()
			Expect(prompt).To(ContainSubstring("redirect them to the support channel"))
			Expect(prompt).NotTo(ContainSubstring(gpioContent))
		})
	})

	Describe("Ask with a failing stream", func() {
		BeforeEach(func() {
			generator.err = errors.New("model unavailable")
			Expect(ctrl.Init(ctx, action.NewSearchAction("init"))).To(Succeed())
		})

		It("folds the failure into the answer and finishes", func() {
			a := action.NewSearchAction(gpioAsk)
			ctrl.Ask(ctx, a)

			Eventually(a.Finished).Should(BeTrue())
			Expect(a.Answer()).To(HaveSuffix("\n\nSomething went wrong: model unavailable"))
			Expect(ctrl.State(a.ID())).To(Equal(answer.StateFailed))
		})
	})

	Describe("late callbacks after the terminal state", func() {
		BeforeEach(func() {
			generator.lateCallbacks = true
			Expect(ctrl.Init(ctx, action.NewSearchAction("init"))).To(Succeed())
		})

		It("ignores stragglers arriving after completion", func() {
			a := action.NewSearchAction(gpioAsk)
			ctrl.Ask(ctx, a)

			Eventually(a.Finished).Should(BeTrue())
			// Give any straggler posts time to flow through the dispatcher.
			Consistently(a.Answer, 100*time.Millisecond).ShouldNot(ContainSubstring("STRAGGLER"))
			Expect(ctrl.State(a.ID())).To(Equal(answer.StateCompleted))
		})
	})

	Describe("Submit", func() {
		BeforeEach(func() {
			Expect(ctrl.Init(ctx, action.NewSearchAction("init"))).To(Succeed())
		})

		It("answers on a background goroutine and records history", func() {
			a := ctrl.Submit(ctx, gpioAsk)
			Expect(a).NotTo(BeNil())

			_, ok := ctrl.History().Get(a.ID())
			Expect(ok).To(BeTrue())
			Eventually(a.Finished).Should(BeTrue())
			Expect(a.Answer()).To(ContainSubstring("Use DigitalOutput."))
		})
	})
})
