// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package matcher

import (
	"errors"
	"fmt"

	"github.com/siemens/nscrawler"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("matchers", func() {

	Context("HaveCollectorError", func() {

		It("doesn't accept anything other than string and GomegaMatcher when creating the matcher", func() {
			Expect(func() {
				_ = HaveCollectorError(42, "foo")
			}).To(PanicWith(ContainSubstring("argument must be string or GomegaMatcher")))
			Expect(func() {
				_ = HaveCollectorError("*fs.PathError", 42)
			}).To(PanicWith(ContainSubstring("message argument")))
			Expect(func() {
				_ = HaveCollectorError("*fs.PathError", ContainSubstring("foo"))
			}).NotTo(Panic())
		})

		It("requires an actual (wrapped) CollectorError", func() {
			cerr := &nscrawler.CollectorError{
				Type:    "*main.FooError",
				Message: "x",
			}
			Expect(cerr).To(HaveCollectorError("*main.FooError", "x"))
			Expect(fmt.Errorf("crawling failed: %w", cerr)).To(
				HaveCollectorError(HaveSuffix("FooError"), "x"))
			Expect(cerr).NotTo(HaveCollectorError("*main.FooError", "y"))

			success, err := HaveCollectorError("foo", "x").Match(errors.New("x"))
			Expect(err).To(MatchError(ContainSubstring("expects a collector error")))
			Expect(success).To(BeFalse())
			_, err = HaveCollectorError("foo", "x").Match(42)
			Expect(err).To(MatchError(ContainSubstring("expects an error")))
		})

	})

})
