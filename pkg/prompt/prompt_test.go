package prompt

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/webtechie/docschat/pkg/vector"
)

func match(text, link, groupID string, score float32) vector.Match {
	return vector.Match{
		Passage: vector.Passage{Text: text, Link: link, GroupID: groupID},
		Score:   score,
	}
}

var _ = Describe("Build", func() {
	Context("with no matches", func() {
		It("selects the redirect template", func() {
			p, err := Build("How do I install?", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(ContainSubstring("How do I install?"))
			Expect(p).To(ContainSubstring("redirect them to the support channel"))
			Expect(p).To(ContainSubstring("Do not attempt to answer the question."))
		})

		It("embeds no passage text", func() {
			p, err := Build("How do I install?", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).NotTo(ContainSubstring("LINK:"))
			Expect(p).NotTo(ContainSubstring("GROUP_ID:"))
		})
	})

	Context("with matches", func() {
		var matches []vector.Match

		BeforeEach(func() {
			matches = []vector.Match{
				match("Use X for Y", "https://docs/x", "g1", 0.9),
				match("Z is deprecated", "https://docs/z", "g2", 0.8),
			}
		})

		It("selects the grounded template with the question", func() {
			p, err := Build("What is X?", matches)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(ContainSubstring("What is X?"))
			Expect(p).To(ContainSubstring("Base your answer on these relevant parts of the documentation"))
		})

		It("embeds every match's text, link and group in order", func() {
			p, err := Build("What is X?", matches)
			Expect(err).NotTo(HaveOccurred())

			first := "Use X for Y. LINK: https://docs/x. GROUP_ID: g1"
			second := "Z is deprecated. LINK: https://docs/z. GROUP_ID: g2"
			Expect(p).To(ContainSubstring(first))
			Expect(p).To(ContainSubstring(second))
			Expect(strings.Index(p, first)).To(BeNumerically("<", strings.Index(p, second)))
		})

		It("joins passages with blank lines", func() {
			p, err := Build("What is X?", matches)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(ContainSubstring("GROUP_ID: g1\n\nZ is deprecated"))
		})

		It("carries the fixed refusal instructions", func() {
			p, err := Build("What is X?", matches)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(ContainSubstring(`"Sorry, that's a question I can't answer"`))
			Expect(p).To(ContainSubstring(`"Sorry, I could not find an answer to your question in our docs"`))
		})

		It("omits the redirect wording", func() {
			p, err := Build("What is X?", matches)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).NotTo(ContainSubstring("support channel"))
		})
	})

	Describe("apply", func() {
		It("fails loudly when a placeholder is absent", func() {
			_, err := apply("no placeholders here", map[string]string{questionVar: "q"})
			Expect(errors.Is(err, ErrTemplate)).To(BeTrue())
		})
	})
})
