// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"errors"
	"iter"
	"slices"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type lazyAnswer struct{ err error }

func (l lazyAnswer) Materialize() (any, error) { return 42, l.err }

// lazyNames materializes into yet another lazy sequence.
type lazyNames []string

func (l lazyNames) Materialize() (any, error) { return slices.Values(l), nil }

var _ = Describe("materializing lazy results", func() {

	It("passes on concrete values", func() {
		Expect(materialize(nil)).To(BeNil())
		Expect(materialize(42)).To(Equal(42))
		Expect(materialize([]string{"foo"})).To(Equal([]string{"foo"}))
		Expect(materialize(func() {})).NotTo(BeNil())
	})

	It("drains iter.Seq in order", func() {
		data := []string{"c", "a", "b"}
		Expect(materialize(slices.Values(data))).To(Equal(data))

		var empty iter.Seq[int] = func(yield func(int) bool) {}
		Expect(materialize(empty)).To(Equal([]int{}))
		var nilseq iter.Seq[int]
		Expect(materialize(nilseq)).To(BeNil())
	})

	It("drains iter.Seq2 in order", func() {
		var seq2 iter.Seq2[string, int] = func(yield func(string, int) bool) {
			for i, s := range []string{"one", "two", "three"} {
				if !yield(s, i+1) {
					return
				}
			}
		}
		Expect(materialize(seq2)).To(Equal([]Pair{
			{Key: "one", Value: 1},
			{Key: "two", Value: 2},
			{Key: "three", Value: 3},
		}))
	})

	It("drains receive channels", func() {
		ch := make(chan int, 3)
		ch <- 3
		ch <- 1
		ch <- 2
		close(ch)
		Expect(materialize((<-chan int)(ch))).To(Equal([]int{3, 1, 2}))

		sendonly := make(chan<- int)
		Expect(materialize(sendonly)).To(Equal(sendonly))
	})

	It("materializes Materializers", func() {
		Expect(materialize(lazyAnswer{})).To(Equal(42))
		_, err := materialize(lazyAnswer{err: errors.New("D'OH!")})
		Expect(err).To(MatchError("D'OH!"))
	})

	It("drains sequences returned by Materializers", func() {
		Expect(materialize(lazyNames{"foo", "bar"})).To(Equal([]string{"foo", "bar"}))
	})

})
