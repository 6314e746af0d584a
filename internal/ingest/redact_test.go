package ingest

import (
	"strings"
	"testing"
)

func TestRedactClasses(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		class string
	}{
		{
			name:  "email",
			in:    "Contact john.smith@email.com for details.",
			want:  "Contact [REDACTED_EMAIL] for details.",
			class: "EMAIL",
		},
		{
			name:  "ssn",
			in:    "SSN 123-45-6789 on file.",
			want:  "SSN [REDACTED_SSN] on file.",
			class: "SSN",
		},
		{
			name:  "credit card",
			in:    "Card 4111-1111-1111-1111 was charged.",
			want:  "Card [REDACTED_CREDIT_CARD] was charged.",
			class: "CREDIT_CARD",
		},
		{
			name:  "bank account",
			in:    "Transfer to account no: 12345678901 completed.",
			want:  "Transfer to [REDACTED_BANK_ACCOUNT] completed.",
			class: "BANK_ACCOUNT",
		},
		{
			name:  "passport",
			in:    "Verified passport no A1234567 at onboarding.",
			want:  "Verified [REDACTED_PASSPORT] at onboarding.",
			class: "PASSPORT",
		},
		{
			name:  "person name with title",
			in:    "Mr. John Smith applied for a loan.",
			want:  "[REDACTED_PERSON_NAME] applied for a loan.",
			class: "PERSON_NAME",
		},
		{
			name:  "person name with role",
			in:    "The borrower Jane Doe defaulted.",
			want:  "The [REDACTED_PERSON_NAME] defaulted.",
			class: "PERSON_NAME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRedactor()
			got := r.Redact(tt.in)
			if got != tt.want {
				t.Errorf("Redact(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if r.Stats()[tt.class] == 0 {
				t.Errorf("expected %s counter to increase", tt.class)
			}
		})
	}
}

func TestRedactPreservesRegulatoryReferences(t *testing.T) {
	tests := []string{
		"See Section 123456 for capital requirements.",
		"Article 200300 covers consumer protection.",
		"Clause 441100 applies to all financial institutions.",
		"Regulation 2023001 was issued by the central bank.",
	}
	for _, in := range tests {
		r := NewRedactor()
		got := r.Redact(in)
		if strings.Contains(got, "REDACTED") {
			t.Errorf("regulatory reference was redacted: %q -> %q", in, got)
		}
	}
}

func TestRedactNationalIDOutsideWhitelist(t *testing.T) {
	r := NewRedactor()
	got := r.Redact("Applicant ID 483920571 was flagged.")
	if !strings.Contains(got, "[REDACTED_NATIONAL_ID]") {
		t.Errorf("bare ID should be redacted, got %q", got)
	}
}

func TestRedactMixedContent(t *testing.T) {
	r := NewRedactor()
	in := "Customer John Smith with SSN 123-45-6789 (email john.smith@email.com) " +
		"is subject to Basel III capital requirements under Section 4."
	got := r.Redact(in)

	for _, token := range []string{"[REDACTED_PERSON_NAME]", "[REDACTED_SSN]", "[REDACTED_EMAIL]"} {
		if !strings.Contains(got, token) {
			t.Errorf("missing %s in %q", token, got)
		}
	}
	for _, keep := range []string{"Basel III", "Section 4", "capital requirements"} {
		if !strings.Contains(got, keep) {
			t.Errorf("regulatory content %q lost in %q", keep, got)
		}
	}
}

func TestRedactStatsAccumulate(t *testing.T) {
	r := NewRedactor()
	r.Redact("a@b.com and c@d.org")
	r.Redact("e@f.net")
	if got := r.Stats()["EMAIL"]; got != 3 {
		t.Errorf("expected 3 email redactions, got %d", got)
	}
}

func TestRedactCleanTextUnchanged(t *testing.T) {
	r := NewRedactor()
	in := "Banks shall maintain a capital adequacy ratio of at least 10%."
	if got := r.Redact(in); got != in {
		t.Errorf("clean text modified: %q", got)
	}
	if len(r.Stats()) != 0 {
		t.Errorf("unexpected redaction counts: %v", r.Stats())
	}
}
