// Package prompt assembles the generation prompt from a question and the
// retrieved documentation passages.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/webtechie/docschat/pkg/vector"
)

// ErrTemplate indicates a template is missing a required placeholder. This
// is a programming invariant, not a runtime input error.
var ErrTemplate = errors.New("template missing placeholder")

const (
	questionVar    = "{{question}}"
	informationVar = "{{information}}"
)

// groundedTemplate is used when retrieval found relevant passages. The model
// must answer only from the given passages and refuse everything else with
// the fixed refusal sentences.
const groundedTemplate = `Answer the following question to the best of your ability:
    ` + questionVar + `

Base your answer on these relevant parts of the documentation:
    ` + informationVar + `

Do not provide any additional information.
Do not provide answers about other programming languages, but write "Sorry, that's a question I can't answer".
Do not generate source code, but write "Sorry, that's a question I can't answer".
If the answer cannot be found in the documents, write "Sorry, I could not find an answer to your question in our docs".
`

// redirectTemplate is used when retrieval found nothing relevant. No
// documentation text is embedded in this branch.
const redirectTemplate = `The documentation contains nothing relevant to the following question:
    ` + questionVar + `

Politely tell the user you could not find an answer in the documentation,
and redirect them to the support channel for further help.
Do not attempt to answer the question.
`

// Build chooses a template based on whether any passages matched and
// substitutes the question (and, for the grounded branch, the concatenated
// passages) into it.
func Build(question string, matches []vector.Match) (string, error) {
	if len(matches) == 0 {
		return apply(redirectTemplate, map[string]string{
			questionVar: question,
		})
	}

	blocks := make([]string, len(matches))
	for i, m := range matches {
		blocks[i] = m.Text + ". LINK: " + m.Link + ". GROUP_ID: " + m.GroupID
	}

	return apply(groundedTemplate, map[string]string{
		questionVar:    question,
		informationVar: strings.Join(blocks, "\n\n"),
	})
}

// apply substitutes every variable into the template, failing loudly when a
// placeholder is absent from the template text.
func apply(template string, vars map[string]string) (string, error) {
	out := template
	for placeholder, value := range vars {
		if !strings.Contains(out, placeholder) {
			return "", fmt.Errorf("%w: %s", ErrTemplate, placeholder)
		}
		out = strings.ReplaceAll(out, placeholder, value)
	}
	return out, nil
}
