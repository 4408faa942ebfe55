// Package report parses the structured test report a harness writes at
// the end of a run (spec.md §4.6 "Report Parser"). The shape is the same
// JUnit-style XML both internal/runner Python generators (via xmlrunner)
// and the Go generator (via encoding/xml) emit: a <testsuite> element, or
// a <testsuites> parent wrapping several, each containing <testcase>
// children that may carry a <failure> or <error> child.
package report

import (
	"encoding/xml"
	"fmt"
)

const (
	maxMessageChars = 2000
	maxDetailsChars = 4000
)

// Failure captures the first failing or erroring test case found in
// document order, per spec.md §4.6.
type Failure struct {
	Suite   string
	Test    string
	Message string
	Type    string
	TimeS   float64
	Details string
}

// Summary is the aggregated result of parsing a report: counts across
// every suite, total elapsed time, and the first failure if any.
type Summary struct {
	Tests    int
	Failures int
	Errors   int
	TimeS    float64
	First    *Failure
}

// xmlCase mirrors the <testcase> element emitted by both language
// generators: name/time attributes plus optional failure/error children.
type xmlCase struct {
	Name    string      `xml:"name,attr"`
	Time    string      `xml:"time,attr"`
	Failure *xmlOutcome `xml:"failure"`
	Error   *xmlOutcome `xml:"error"`
}

type xmlOutcome struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Text    string `xml:",chardata"`
}

// xmlSuite mirrors one <testsuite> element.
type xmlSuite struct {
	Name     string    `xml:"name,attr"`
	Tests    int       `xml:"tests,attr"`
	Failures int       `xml:"failures,attr"`
	Errors   int       `xml:"errors,attr"`
	Time     string    `xml:"time,attr"`
	Cases    []xmlCase `xml:"testcase"`
}

// xmlSuites mirrors the optional <testsuites> parent wrapping several
// suites. xmlrunner writes a bare <testsuite> for a single TestCase class;
// multi-suite reports (a harness with more than one TestCase class) are
// wrapped in <testsuites> — accept both per spec.md §4.6's "a single report
// element or a parent element containing multiple test-suite elements".
type xmlSuites struct {
	Suites []xmlSuite `xml:"testsuite"`
}

// Parse decodes report bytes into a Summary. It does not distinguish a
// missing report from any other input — spec.md §4.6 treats "no report
// file" as an executor-level signal, not something this parser sees; the
// caller (internal/orchestrator) checks for the absence before calling
// Parse, and internal/verdict classifies it.
func Parse(data []byte) (*Summary, error) {
	var suites []xmlSuite

	var wrapper xmlSuites
	if err := xml.Unmarshal(data, &wrapper); err == nil && len(wrapper.Suites) > 0 {
		suites = wrapper.Suites
	} else {
		var single xmlSuite
		if err := xml.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("report: invalid report document: %w", err)
		}
		suites = []xmlSuite{single}
	}

	summary := &Summary{}
	for _, suite := range suites {
		summary.Tests += suite.Tests
		summary.Failures += suite.Failures
		summary.Errors += suite.Errors
		summary.TimeS += lenientFloat(suite.Time)

		if summary.First != nil {
			continue
		}
		for _, tc := range suite.Cases {
			outcome, kind := tc.Error, "error"
			if outcome == nil {
				outcome, kind = tc.Failure, "failure"
			}
			if outcome == nil {
				continue
			}
			summary.First = &Failure{
				Suite:   suite.Name,
				Test:    tc.Name,
				Message: truncate(outcome.Message, maxMessageChars),
				Type:    firstNonEmpty(outcome.Type, kind),
				TimeS:   lenientFloat(tc.Time),
				Details: truncate(outcome.Text, maxDetailsChars),
			}
			break
		}
	}

	return summary, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// lenientFloat parses a numeric attribute leniently (spec.md §4.6 "total
// elapsed time_s (numeric, lenient parse)"): a malformed or absent value
// contributes zero rather than failing the whole parse.
func lenientFloat(s string) float64 {
	var f float64
	if s == "" {
		return 0
	}
	if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
		return 0
	}
	return f
}
