// Package extract pulls the date, player, item and amount out of a classified log line.
//
// The parser is best-effort: a line missing any required field yields no event and
// the caller moves on to the next line.
package extract

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/okian/tradedigest/internal/domain/model"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var (
	// [2024-01-01 10:00:00] - Alice
	headerPattern = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2})\s\d{2}:\d{2}:\d{2}\] - (\S+)\s+`)
	amountPattern = regexp.MustCompile(`for\s+\$([\d,.]+)`)
)

// Extract builds an Event from a line already classified as kind.
// It reports false when the kind is Ignore or any required field is missing.
func Extract(line string, kind model.Kind) (model.Event, bool) {
	verb := kind.Verb()
	if verb == "" {
		return model.Event{}, false
	}
	line = strings.TrimSpace(line)

	m := headerPattern.FindStringSubmatchIndex(line)
	if m == nil {
		return model.Event{}, false
	}
	date := line[m[2]:m[3]]
	if _, err := time.Parse(dateLayout, date); err != nil {
		return model.Event{}, false
	}
	player := line[m[4]:m[5]]

	remainder, ok := cutVerb(line[m[1]:], verb)
	if !ok {
		return model.Event{}, false
	}

	am := amountPattern.FindStringSubmatch(remainder)
	if am == nil {
		return model.Event{}, false
	}
	amount, ok := ParseAmount(am[1])
	if !ok {
		return model.Event{}, false
	}

	return model.Event{
		Date:   date,
		Kind:   kind,
		Player: player,
		Item:   ItemName(remainder),
		Amount: amount,
	}, true
}

// cutVerb strips a leading verb (case-insensitive, whole word) and returns the
// trimmed text after it.
func cutVerb(s, verb string) (string, bool) {
	if len(s) < len(verb) || !strings.EqualFold(s[:len(verb)], verb) {
		return "", false
	}
	rest := s[len(verb):]
	if r, _ := utf8.DecodeRuneInString(rest); rest != "" && !unicode.IsSpace(r) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// ParseAmount parses a dollar figure such as "1,234.50". Thousands separators are
// removed before parsing; a trailing sentence period is tolerated.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(raw, ",", "")
	s = strings.TrimRight(s, ".")
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ItemName normalizes the text that follows the verb into an item key.
//
// The text is split on the letter x. With no x at all the whole text is the item.
// Otherwise everything after the first x-delimited piece is rejoined and cut at the
// first "for", so "3 x Sword(x2) for $9" becomes "Sword(x2)".
func ItemName(remainder string) string {
	parts := strings.Split(remainder, "x")
	if len(parts) < 2 {
		return strings.TrimSpace(remainder)
	}
	name := strings.TrimSpace(strings.Join(parts[1:], "x"))
	name, _, _ = strings.Cut(name, "for")
	return strings.TrimSpace(name)
}

// CanonicalItem drops a parenthesised identifier suffix: "Sword(123)" becomes "Sword".
func CanonicalItem(name string) string {
	name, _, _ = strings.Cut(name, "(")
	return strings.TrimSpace(name)
}
