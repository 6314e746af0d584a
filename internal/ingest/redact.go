package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/longregen/creditexplain/internal/adapters/metrics"
)

// piiPattern pairs a redaction class with its detector. Order matters: more
// specific patterns run before broader ones so an SSN is labeled SSN, not
// NATIONAL_ID.
type piiPattern struct {
	class string
	re    *regexp.Regexp
}

var piiPatterns = []piiPattern{
	{"EMAIL", regexp.MustCompile(`(?i)\b[\w.-]+@[\w.-]+\.\w+\b`)},
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"CREDIT_CARD", regexp.MustCompile(`\b(?:\d{4}[- ]?){3}\d{4}\b`)},
	{"BANK_ACCOUNT", regexp.MustCompile(`(?i)\b(?:account|acct|acc\.?)\s*(?:no|number|#)?\s*[:#]?\s*\d{8,20}\b`)},
	{"PASSPORT", regexp.MustCompile(`(?i)\b(?:passport|ppt)\s*(?:no|number|#)?\s*[:#]?\s*[A-Z]{1,2}\d{6,9}[A-Z]?\b`)},
	{"DRIVER_LICENSE", regexp.MustCompile(`(?i)\b(?:driver'?s?\s*license|dl|lic\.?)\s*(?:no|number|#)?\s*[:#]?\s*[A-Z0-9]{7,15}\b`)},
	{"PHONE", regexp.MustCompile(`\b(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
	{"PERSON_NAME", regexp.MustCompile(`(?i)\b(?:mr|mrs|ms|dr)\.?\s+[A-Z][a-z]+\s+[A-Z][a-z]+\b|\b(?:customer|client|applicant|borrower)\s+[A-Z][a-z]+\s+[A-Z][a-z]+\b`)},
	{"NATIONAL_ID", regexp.MustCompile(`(?i)\b(?:\d{6,12}|[A-Z]{2,3}\d{6,9})\b`)},
}

// Regulatory phrases are never redacted even when a PII pattern matches
// inside them. Section numbers in particular collide with NATIONAL_ID.
var regulatoryWhitelist = []*regexp.Regexp{
	regexp.MustCompile(`(?i)basel\s+[iI]+`),
	regexp.MustCompile(`(?i)section\s+\d+`),
	regexp.MustCompile(`(?i)article\s+\d+`),
	regexp.MustCompile(`(?i)clause\s+\d+`),
	regexp.MustCompile(`(?i)regulation\s+\d+`),
	regexp.MustCompile(`(?i)capital\s+requirement`),
	regexp.MustCompile(`(?i)adequacy\s+ratio`),
	regexp.MustCompile(`(?i)financial\s+institution`),
	regexp.MustCompile(`(?i)central\s+bank`),
	regexp.MustCompile(`(?i)consumer\s+protection`),
	regexp.MustCompile(`(?i)credit\s+risk`),
	regexp.MustCompile(`(?i)compliance`),
	regexp.MustCompile(`(?i)jurisdiction`),
}

// Redactor strips personally identifiable information from document text
// before it reaches the index. It is safe for concurrent use and keeps
// per-class counts for the compliance audit surface.
type Redactor struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewRedactor() *Redactor {
	return &Redactor{counts: make(map[string]int64)}
}

// Redact replaces each PII match with a [REDACTED_<CLASS>] token. Matches
// that fall inside a whitelisted regulatory phrase are left intact, so
// "Section 123456" keeps its number while a bare national ID does not.
func (r *Redactor) Redact(text string) string {
	for _, p := range piiPatterns {
		protected := whitelistRanges(text)
		var b strings.Builder
		last := 0
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if overlapsAny(loc, protected) {
				continue
			}
			b.WriteString(text[last:loc[0]])
			fmt.Fprintf(&b, "[REDACTED_%s]", p.class)
			last = loc[1]
			r.record(p.class)
		}
		if last == 0 {
			continue
		}
		b.WriteString(text[last:])
		text = b.String()
	}
	return text
}

func whitelistRanges(text string) [][]int {
	var ranges [][]int
	for _, w := range regulatoryWhitelist {
		ranges = append(ranges, w.FindAllStringIndex(text, -1)...)
	}
	return ranges
}

func overlapsAny(loc []int, ranges [][]int) bool {
	for _, r := range ranges {
		if loc[0] < r[1] && r[0] < loc[1] {
			return true
		}
	}
	return false
}

func (r *Redactor) record(class string) {
	r.mu.Lock()
	r.counts[class]++
	r.mu.Unlock()
	metrics.PIIRedactions.WithLabelValues(class).Inc()
}

// Stats returns a copy of the per-class redaction counts accumulated so far.
func (r *Redactor) Stats() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}
