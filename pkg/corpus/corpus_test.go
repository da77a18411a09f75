package corpus_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/google/uuid"

	"github.com/webtechie/docschat/pkg/corpus"
)

const sampleJSON = `[
	{
		"objectID": "2914e366-85f1-4a14-9bab-6ba99a5e3b3f",
		"groupId": "getting-started",
		"groupLabel": "Getting Started",
		"version": "1.0",
		"title": "Install",
		"section": "Requirements",
		"url": "https://docs.example.com/install",
		"link": "https://docs.example.com/install#requirements",
		"content": "Use X for Y"
	},
	{
		"objectID": "7f3cbd09-5cbe-4b93-a6ee-3c7f823361af",
		"groupId": "getting-started",
		"groupLabel": "Getting Started",
		"version": "1.0",
		"title": "Install",
		"section": "Empty",
		"url": "https://docs.example.com/install",
		"link": "https://docs.example.com/install#empty",
		"content": ""
	}
]`

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("loads all sections from a well-formed corpus", func() {
		path := filepath.Join(dir, "docs_index.json")
		Expect(os.WriteFile(path, []byte(sampleJSON), 0o600)).To(Succeed())

		result, err := corpus.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Sections).To(HaveLen(2))
		Expect(result.Skipped).To(BeZero())

		first := result.Sections[0]
		Expect(first.ObjectID).To(Equal(uuid.MustParse("2914e366-85f1-4a14-9bab-6ba99a5e3b3f")))
		Expect(first.GroupID).To(Equal("getting-started"))
		Expect(first.Link).To(Equal("https://docs.example.com/install#requirements"))
		Expect(first.Content).To(Equal("Use X for Y"))
	})

	It("returns ErrCorpusNotFound with an empty result for a missing file", func() {
		result, err := corpus.Load(filepath.Join(dir, "nope.json"))
		Expect(errors.Is(err, corpus.ErrCorpusNotFound)).To(BeTrue())
		Expect(result.Sections).To(BeEmpty())
	})

	It("returns ErrCorpusParse for malformed JSON", func() {
		path := filepath.Join(dir, "bad.json")
		Expect(os.WriteFile(path, []byte(`{"not": "an array"`), 0o600)).To(Succeed())

		_, err := corpus.Load(path)
		Expect(errors.Is(err, corpus.ErrCorpusParse)).To(BeTrue())
	})

	It("skips individually broken records without aborting the load", func() {
		mixed := `[
			{"objectID": "2914e366-85f1-4a14-9bab-6ba99a5e3b3f", "groupId": "g1", "content": "ok"},
			{"objectID": "not-a-uuid", "groupId": "g1", "content": "broken"},
			{"objectID": "7f3cbd09-5cbe-4b93-a6ee-3c7f823361af", "groupId": "g1", "content": "also ok"}
		]`

		result, err := corpus.Decode([]byte(mixed))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Sections).To(HaveLen(2))
		Expect(result.Skipped).To(Equal(1))
		Expect(result.Sections[1].Content).To(Equal("also ok"))
	})

	It("decodes an empty array to an empty section list", func() {
		result, err := corpus.Decode([]byte(`[]`))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Sections).To(BeEmpty())
	})
})
