// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package matcher

import (
	"errors"
	"fmt"

	"github.com/siemens/nscrawler"

	g "github.com/onsi/gomega"
	"github.com/onsi/gomega/types"
)

// HaveCollectorError succeeds if ACTUAL is an error that is or wraps a
// [nscrawler.CollectorError] with the specified original error type name and
// message. Alternatively of type name and message strings, GomegaMatchers can
// also be specified, such as ContainSubstring and MatchRegexp.
func HaveCollectorError(typ any, message any) types.GomegaMatcher {
	return g.WithTransform(func(actual any) (*nscrawler.CollectorError, error) {
		err, ok := actual.(error)
		if !ok {
			return nil, fmt.Errorf("HaveCollectorError expects an error, but got %T", actual)
		}
		var cerr *nscrawler.CollectorError
		if !errors.As(err, &cerr) {
			return nil, fmt.Errorf("HaveCollectorError expects a collector error, but got %T", actual)
		}
		return cerr, nil
	}, g.And(
		g.HaveField("Type", stringMatcher("typ", typ)),
		g.HaveField("Message", stringMatcher("message", message))))
}

func stringMatcher(name string, expected any) types.GomegaMatcher {
	switch expected := expected.(type) {
	case string:
		return g.Equal(expected)
	case types.GomegaMatcher:
		return expected
	}
	panic(name + " argument must be string or GomegaMatcher")
}
