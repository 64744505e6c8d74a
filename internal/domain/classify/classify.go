// Package classify decides whether a raw log line records a sale, a purchase, or neither.
package classify

import (
	"strings"

	"github.com/okian/tradedigest/internal/domain/model"
)

// Classify returns model.Sale when the line mentions "sold", model.Purchase when it
// mentions "bought", and model.Ignore when it mentions both or neither.
// Matching is a case-insensitive substring test.
func Classify(line string) model.Kind {
	lower := strings.ToLower(line)
	sold := strings.Contains(lower, model.Sale.Verb())
	bought := strings.Contains(lower, model.Purchase.Verb())

	switch {
	case sold && !bought:
		return model.Sale
	case bought && !sold:
		return model.Purchase
	default:
		return model.Ignore
	}
}
