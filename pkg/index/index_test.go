package index

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/corpus"
	"github.com/webtechie/docschat/pkg/vector"
	"github.com/webtechie/docschat/pkg/vector/memory"
)

// fakeEmbedder maps known texts to fixed vectors so tests are deterministic
// without a live model.
type fakeEmbedder struct {
	vectors map[string][]float32
	failAll bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.failAll {
		return nil, vector.ErrEmbedding
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if f.failAll {
		return nil, vector.ErrEmbedding
	}
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

func section(content, link, groupID string) corpus.ContentSection {
	return corpus.ContentSection{
		ObjectID: uuid.New(),
		GroupID:  groupID,
		Link:     link,
		Content:  content,
	}
}

var _ = Describe("Index", func() {
	var (
		embedder *fakeEmbedder
		ix       *Index
		ctx      context.Context
	)

	BeforeEach(func() {
		embedder = &fakeEmbedder{vectors: map[string][]float32{
			"Use X for Y":      {1, 0, 0},
			"Use Z instead":    {0, 1, 0},
			"question about X": {0.95, 0.05, 0},
		}}
		ix = New(embedder, memory.NewDriver(zap.NewNop()), zap.NewNop())
		ctx = context.Background()
	})

	Describe("Ingest", func() {
		It("excludes sections with empty content", func() {
			count, err := ix.Ingest(ctx, []corpus.ContentSection{
				section("Use X for Y", "https://docs/x", "g1"),
				section("", "https://docs/empty", "g1"),
				section("Use Z instead", "https://docs/z", "g2"),
			}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))

			size, err := ix.Size(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(size).To(Equal(2))
		})

		It("reports cumulative progress messages", func() {
			var progress []string
			_, err := ix.Ingest(ctx, []corpus.ContentSection{
				section("Use X for Y", "https://docs/x", "g1"),
			}, func(msg string) { progress = append(progress, msg) })
			Expect(err).NotTo(HaveOccurred())

			joined := strings.Join(progress, "")
			Expect(joined).To(ContainSubstring("Converted to number of text segments: 1"))
			Expect(joined).To(ContainSubstring("Number of embeddings: 1"))
			Expect(joined).To(ContainSubstring("Embeddings are added to the store"))
		})

		It("marks an empty corpus as ready", func() {
			count, err := ix.Ingest(ctx, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
			Expect(ix.Ready()).To(BeTrue())
		})

		It("does not flip ready when embedding fails", func() {
			embedder.failAll = true
			_, err := ix.Ingest(ctx, []corpus.ContentSection{
				section("Use X for Y", "https://docs/x", "g1"),
			}, nil)
			Expect(err).To(HaveOccurred())
			Expect(ix.Ready()).To(BeFalse())
		})
	})

	Describe("Search", func() {
		It("returns ErrNotReady before ingestion", func() {
			_, err := ix.Search(ctx, "question about X", DefaultMaxResults, DefaultMinScore)
			Expect(errors.Is(err, ErrNotReady)).To(BeTrue())
		})

		It("finds relevant passages above the threshold", func() {
			_, err := ix.Ingest(ctx, []corpus.ContentSection{
				section("Use X for Y", "https://docs/x", "g1"),
				section("Use Z instead", "https://docs/z", "g2"),
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			matches, err := ix.Search(ctx, "question about X", DefaultMaxResults, DefaultMinScore)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].Link).To(Equal("https://docs/x"))
			Expect(matches[0].GroupID).To(Equal("g1"))
			Expect(matches[0].Score).To(BeNumerically(">=", DefaultMinScore))
		})

		It("returns an empty result for an empty but ready index", func() {
			_, err := ix.Ingest(ctx, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			matches, err := ix.Search(ctx, "anything", DefaultMaxResults, DefaultMinScore)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
		})

		It("returns identical ordered results on repeated queries", func() {
			_, err := ix.Ingest(ctx, []corpus.ContentSection{
				section("Use X for Y", "https://docs/x", "g1"),
				section("Use Z instead", "https://docs/z", "g2"),
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			first, err := ix.Search(ctx, "question about X", DefaultMaxResults, 0)
			Expect(err).NotTo(HaveOccurred())

			for range 3 {
				again, err := ix.Search(ctx, "question about X", DefaultMaxResults, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(again).To(Equal(first))
			}
		})

		It("caps results at maxResults", func() {
			_, err := ix.Ingest(ctx, []corpus.ContentSection{
				section("Use X for Y", "https://docs/x", "g1"),
				section("Use Z instead", "https://docs/z", "g2"),
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			matches, err := ix.Search(ctx, "question about X", 1, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
		})
	})
})
