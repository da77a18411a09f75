package action_test

import (
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/webtechie/docschat/pkg/action"
)

var _ = Describe("SearchAction", func() {
	var a *action.SearchAction

	BeforeEach(func() {
		a = action.NewSearchAction("How do I configure a GPIO pin?")
	})

	It("starts empty and unfinished", func() {
		Expect(a.Question()).To(Equal("How do I configure a GPIO pin?"))
		Expect(a.Answer()).To(BeEmpty())
		Expect(a.RelatedLinks()).To(BeEmpty())
		Expect(a.Finished()).To(BeFalse())
		Expect(a.ID()).NotTo(BeZero())
	})

	It("assigns distinct IDs to distinct actions", func() {
		b := action.NewSearchAction("another")
		Expect(a.ID()).NotTo(Equal(b.ID()))
	})

	Describe("AppendAnswer", func() {
		It("accumulates tokens verbatim, in order", func() {
			a.AppendAnswer("Use ")
			a.AppendAnswer("DigitalOutput")
			a.AppendAnswer(".")
			Expect(a.Answer()).To(Equal("Use DigitalOutput."))
		})

		It("preserves whitespace and newlines exactly", func() {
			a.AppendAnswer("line one\n")
			a.AppendAnswer("  indented")
			Expect(a.Answer()).To(Equal("line one\n  indented"))
		})
	})

	Describe("AppendRelatedLink", func() {
		It("puts each link on its own line", func() {
			a.AppendRelatedLink("https://docs.example/gpio")
			a.AppendRelatedLink("https://docs.example/pwm")
			Expect(a.RelatedLinks()).To(Equal("\nhttps://docs.example/gpio\nhttps://docs.example/pwm"))
		})
	})

	Describe("MarkFinished", func() {
		It("flips finished exactly once", func() {
			flips := 0
			a.Subscribe(func(m action.Mutation) {
				if m.Kind == action.MutationFinished {
					flips++
				}
			})

			a.MarkFinished()
			a.MarkFinished()
			a.MarkFinished()

			Expect(a.Finished()).To(BeTrue())
			Expect(flips).To(Equal(1))
		})

		It("never reverts once set", func() {
			a.MarkFinished()
			a.AppendAnswer("late")
			a.MarkFinished()
			Expect(a.Finished()).To(BeTrue())
		})
	})

	Describe("after the finished flip", func() {
		It("ignores late answer and link appends", func() {
			a.AppendAnswer("before")
			a.MarkFinished()
			a.AppendAnswer(" after")
			a.AppendRelatedLink("https://docs.example/late")

			Expect(a.Answer()).To(Equal("before"))
			Expect(a.RelatedLinks()).To(BeEmpty())
		})

		It("notifies no observers for late appends", func() {
			var seen []action.Mutation
			a.Subscribe(func(m action.Mutation) { seen = append(seen, m) })

			a.MarkFinished()
			a.AppendAnswer("late")
			a.AppendRelatedLink("https://docs.example/late")

			Expect(seen).To(HaveLen(1))
			Expect(seen[0].Kind).To(Equal(action.MutationFinished))
		})
	})

	Describe("observers", func() {
		It("sees finished only after all prior appends, never before", func() {
			finished := false
			a.Subscribe(func(m action.Mutation) {
				switch m.Kind {
				case action.MutationFinished:
					finished = true
				default:
					Expect(finished).To(BeFalse())
				}
			})

			a.AppendAnswer("a")
			a.AppendRelatedLink("https://docs.example/a")
			a.AppendAnswer("b")
			a.MarkFinished()

			Expect(finished).To(BeTrue())
		})
	})

	Describe("NewFinishedSearchAction", func() {
		It("is terminal from birth", func() {
			n := action.NewFinishedSearchAction("Application started")
			Expect(n.Finished()).To(BeTrue())
			n.AppendAnswer("nope")
			Expect(n.Answer()).To(BeEmpty())
		})
	})
})

var _ = Describe("Dispatcher", func() {
	It("applies posted mutations in order", func() {
		d := action.NewDispatcher(16)
		a := action.NewSearchAction("q")

		for i := 0; i < 10; i++ {
			tok := fmt.Sprintf("%d,", i)
			d.Post(func() { a.AppendAnswer(tok) })
		}
		d.Post(func() { a.MarkFinished() })
		d.Close()

		Expect(a.Answer()).To(Equal("0,1,2,3,4,5,6,7,8,9,"))
		Expect(a.Finished()).To(BeTrue())
	})

	It("serializes posts from concurrent producers", func() {
		d := action.NewDispatcher(16)
		a := action.NewSearchAction("q")

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					d.Post(func() { a.AppendAnswer("x") })
				}
			}()
		}
		wg.Wait()
		d.Close()

		Expect(a.Answer()).To(HaveLen(8 * 50))
	})

	It("drops posts arriving after Close", func() {
		d := action.NewDispatcher(4)
		a := action.NewSearchAction("q")
		d.Close()
		d.Post(func() { a.AppendAnswer("dropped") })
		Expect(a.Answer()).To(BeEmpty())
	})

	It("drains the queue on Close", func() {
		d := action.NewDispatcher(64)
		a := action.NewSearchAction("q")
		for i := 0; i < 64; i++ {
			d.Post(func() { a.AppendAnswer(".") })
		}
		d.Close()
		Expect(a.Answer()).To(HaveLen(64))
	})
})

var _ = Describe("History", func() {
	It("lists actions in creation order", func() {
		h := action.NewHistory()
		first := action.NewSearchAction("first")
		second := action.NewSearchAction("second")
		h.Add(first)
		h.Add(second)

		list := h.List()
		Expect(list).To(HaveLen(2))
		Expect(list[0].Question()).To(Equal("first"))
		Expect(list[1].Question()).To(Equal("second"))
	})

	It("finds actions by ID", func() {
		h := action.NewHistory()
		a := action.NewSearchAction("findme")
		h.Add(a)

		got, ok := h.Get(a.ID())
		Expect(ok).To(BeTrue())
		Expect(got).To(BeIdenticalTo(a))

		_, ok = h.Get(action.NewSearchAction("other").ID())
		Expect(ok).To(BeFalse())
	})

	It("ignores duplicate adds", func() {
		h := action.NewHistory()
		a := action.NewSearchAction("dup")
		h.Add(a)
		h.Add(a)
		Expect(h.Len()).To(Equal(1))
	})
})
