package extraction

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/arbovm/levenshtein"

	"go-invoice-capture/pkg/models"
)

type field int

const (
	fieldSupplier field = iota
	fieldInvoiceNumber
	fieldDate
	fieldAmount
	fieldCount
)

// labels recognised in front of each field, already normalised
var fieldLabels = map[field][]string{
	fieldSupplier:      {"from", "supplier", "vendor", "sold by", "bill from", "seller"},
	fieldInvoiceNumber: {"invoice no", "invoice number", "invoice #", "inv no", "invoice id", "reference", "ref no"},
	fieldDate:          {"date", "invoice date", "issue date", "issued", "date of issue"},
	fieldAmount:        {"total", "amount due", "total due", "balance due", "grand total", "amount", "total amount"},
}

var (
	amountPattern  = regexp.MustCompile(`[$€£]?\s?\d{1,3}(?:[,.\s]\d{3})*(?:[.,]\d{2})|[$€£]\s?\d+`)
	invoicePattern = regexp.MustCompile(`\b(?:INV|INVOICE)[-\s#]*[A-Z0-9][A-Z0-9-]{2,}\b`)
	datePattern    = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}[/.]\d{1,2}[/.]\d{4}\b|\b[A-Z][a-z]{2,8}\.? \d{1,2}, \d{4}\b|\b\d{1,2} [A-Z][a-z]{2,8} \d{4}\b`)
)

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan. 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

func normaliseLabel(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '#':
			b.WriteRune(r)
			space = false
		case !space && b.Len() > 0:
			b.WriteRune(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// labelMatches tolerates roughly one OCR error per five characters
func labelMatches(candidate, label string) bool {
	if candidate == label {
		return true
	}
	tolerance := len(label) / 5
	if tolerance < 1 {
		tolerance = 1
	}
	if len(label) <= 4 {
		tolerance = 0
	}
	return levenshtein.Distance(candidate, label) <= tolerance
}

// matchLabel returns the field a line starts with and the remaining value
func matchLabel(line string) (field, string, bool) {
	if idx := strings.IndexAny(line, ":"); idx > 0 {
		head := normaliseLabel(line[:idx])
		for f := field(0); f < fieldCount; f++ {
			for _, label := range fieldLabels[f] {
				if labelMatches(head, label) {
					return f, strings.TrimSpace(line[idx+1:]), true
				}
			}
		}
	}

	// "Invoice No INV-1" without a colon: try the longest word prefix first
	words := strings.Fields(line)
	for n := 3; n >= 1; n-- {
		if len(words) <= n {
			continue
		}
		head := normaliseLabel(strings.Join(words[:n], " "))
		for f := field(0); f < fieldCount; f++ {
			for _, label := range fieldLabels[f] {
				if labelMatches(head, label) {
					return f, strings.Join(words[n:], " "), true
				}
			}
		}
	}
	return 0, "", false
}

func normaliseDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

func cleanValue(f field, value string) string {
	switch f {
	case fieldAmount:
		if m := amountPattern.FindString(value); m != "" {
			return strings.TrimSpace(m)
		}
	case fieldDate:
		if m := datePattern.FindString(value); m != "" {
			return normaliseDate(m)
		}
		return normaliseDate(value)
	case fieldInvoiceNumber:
		value = strings.TrimLeft(value, "#: ")
	}
	return strings.TrimSpace(value)
}

// ParseFields extracts invoice fields from recognised text lines.
// meanConfidence is the recogniser's average word confidence in [0,100];
// the result confidence scales it by the share of fields found.
func ParseFields(lines []string, meanConfidence float64) models.ExtractionResult {
	var values [fieldCount]string

	firstText := ""
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		f, value, ok := matchLabel(line)
		if ok {
			if values[f] == "" {
				values[f] = cleanValue(f, value)
			}
			continue
		}
		if firstText == "" && !strings.Contains(strings.ToLower(line), "invoice") {
			firstText = line
		}
	}

	// unlabelled fallbacks
	text := strings.Join(lines, "\n")
	if values[fieldSupplier] == "" {
		values[fieldSupplier] = firstText
	}
	if values[fieldInvoiceNumber] == "" {
		values[fieldInvoiceNumber] = invoicePattern.FindString(strings.ToUpper(text))
	}
	if values[fieldDate] == "" {
		if m := datePattern.FindString(text); m != "" {
			values[fieldDate] = normaliseDate(m)
		}
	}

	found := 0
	for _, v := range values {
		if v != "" {
			found++
		}
	}

	confidence := math.Max(0, math.Min(100, meanConfidence)) * float64(found) / float64(fieldCount)
	return models.ExtractionResult{
		Supplier:      values[fieldSupplier],
		Amount:        values[fieldAmount],
		Date:          values[fieldDate],
		InvoiceNumber: values[fieldInvoiceNumber],
		Confidence:    math.Round(confidence*10) / 10,
	}
}
