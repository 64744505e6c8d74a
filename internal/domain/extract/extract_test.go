package extract_test

import (
	"regexp"
	"testing"

	"github.com/okian/tradedigest/internal/domain/extract"
	"github.com/okian/tradedigest/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func TestExtract(t *testing.T) {
	convey.Convey("Given a well formed sale line", t, func() {
		line := "[2024-01-01 10:00:00] - Alice sold 1 x Sword(x2) for $10.00"

		convey.Convey("When extracting it as a sale", func() {
			ev, ok := extract.Extract(line, model.Sale)

			convey.Convey("Then every field should be populated", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(ev.Date, convey.ShouldEqual, "2024-01-01")
				convey.So(ev.Kind, convey.ShouldEqual, model.Sale)
				convey.So(ev.Player, convey.ShouldEqual, "Alice")
				convey.So(ev.Item, convey.ShouldEqual, "Sword(x2)")
				convey.So(ev.Amount.StringFixed(2), convey.ShouldEqual, "10.00")
			})
		})

		convey.Convey("When extracting it as a purchase", func() {
			_, ok := extract.Extract(line, model.Purchase)

			convey.Convey("Then the verb mismatch should reject it", func() {
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When extracting it as Ignore", func() {
			_, ok := extract.Extract(line, model.Ignore)
			convey.So(ok, convey.ShouldBeFalse)
		})
	})

	convey.Convey("Given a purchase line with thousands separators and CRLF", t, func() {
		line := "[2024-02-29 23:59:59] - Bob bought 3 x Dragon Scale(9f1c) for $1,234.56\r\n"

		ev, ok := extract.Extract(line, model.Purchase)

		convey.So(ok, convey.ShouldBeTrue)
		convey.So(ev.Date, convey.ShouldEqual, "2024-02-29")
		convey.So(ev.Player, convey.ShouldEqual, "Bob")
		convey.So(ev.Item, convey.ShouldEqual, "Dragon Scale(9f1c)")
		convey.So(ev.Amount.StringFixed(2), convey.ShouldEqual, "1234.56")
	})

	convey.Convey("Given lines that must be skipped", t, func() {
		cases := []struct {
			name string
			line string
		}{
			{"missing amount clause", "[2024-01-01 10:00:00] - Alice sold 1 x Sword"},
			{"missing dollar sign", "[2024-01-01 10:00:00] - Alice sold 1 x Sword for 10.00"},
			{"missing timestamp", "- Alice sold 1 x Sword for $10.00"},
			{"timestamp not at start", "note [2024-01-01 10:00:00] - Alice sold 1 x Sword for $10.00"},
			{"missing separator", "[2024-01-01 10:00:00] Alice sold 1 x Sword for $10.00"},
			{"two word player", "[2024-01-01 10:00:00] - Alice Smith sold 1 x Sword for $10.00"},
			{"verb inside a word", "[2024-01-01 10:00:00] - Alice soldier 1 x Sword for $10.00"},
			{"impossible date", "[2024-13-40 10:00:00] - Alice sold 1 x Sword for $10.00"},
			{"unparseable amount", "[2024-01-01 10:00:00] - Alice sold 1 x Sword for $1.2.3"},
			{"amount with only commas", "[2024-01-01 10:00:00] - Alice sold 1 x Sword for $,,"},
		}

		for _, tc := range cases {
			convey.Convey("When the line has a "+tc.name, func() {
				_, ok := extract.Extract(tc.line, model.Sale)
				convey.So(ok, convey.ShouldBeFalse)
			})
		}
	})

	convey.Convey("Given an upper case verb", t, func() {
		ev, ok := extract.Extract("[2024-01-01 10:00:00] - Alice SOLD 2 x Axe for $3", model.Sale)

		convey.So(ok, convey.ShouldBeTrue)
		convey.So(ev.Item, convey.ShouldEqual, "Axe")
		convey.So(ev.Amount.StringFixed(2), convey.ShouldEqual, "3.00")
	})

	convey.Convey("Given many valid lines", t, func() {
		lines := []string{
			"[2024-01-01 10:00:00] - A sold 1 x B for $0",
			"[1999-12-31 00:00:00] - Zed bought 9 x Gem(1) for $999,999.99",
			"[2030-06-15 12:30:45] - p_1 sold x for $1.",
		}

		convey.Convey("Then every event should have a non-negative amount and a calendar date", func() {
			for _, line := range lines {
				ev, ok := extract.Extract(line, classifyFor(line))
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(ev.Amount.IsNegative(), convey.ShouldBeFalse)
				convey.So(datePattern.MatchString(ev.Date), convey.ShouldBeTrue)
			}
		})
	})
}

func classifyFor(line string) model.Kind {
	if regexp.MustCompile(`(?i)bought`).MatchString(line) {
		return model.Purchase
	}
	return model.Sale
}

func TestItemName(t *testing.T) {
	convey.Convey("Given text that follows the verb", t, func() {
		convey.Convey("When it has no x at all", func() {
			convey.So(extract.ItemName("  Shield for $20.50 "), convey.ShouldEqual, "Shield for $20.50")
		})

		convey.Convey("When it uses the quantity-x-item layout", func() {
			convey.So(extract.ItemName("1 x Shield for $20.50"), convey.ShouldEqual, "Shield")
			convey.So(extract.ItemName("3 x Sword(x2) for $9"), convey.ShouldEqual, "Sword(x2)")
		})

		convey.Convey("When the quantity marker trails the item", func() {
			convey.Convey("Then the split-on-x rule keeps only what follows the first x", func() {
				convey.So(extract.ItemName("Sword(x2) x1 for $10.00"), convey.ShouldEqual, "2) x1")
				convey.So(extract.ItemName("Shield x1 for $20,50"), convey.ShouldEqual, "1")
			})
		})

		convey.Convey("When the item name itself contains for", func() {
			convey.So(extract.ItemName("1 x Comfortable Boots for $5"), convey.ShouldEqual, "Com")
		})

		convey.Convey("When the text is empty", func() {
			convey.So(extract.ItemName(""), convey.ShouldEqual, "")
		})
	})
}

func TestCanonicalItem(t *testing.T) {
	convey.Convey("Given item names with and without identifiers", t, func() {
		names := []string{"Sword(x2)", "Dragon Scale (9f1c)", "Shield", "", "(orphan)", "A(b(c))"}

		convey.Convey("Then the identifier suffix should be dropped", func() {
			convey.So(extract.CanonicalItem("Sword(x2)"), convey.ShouldEqual, "Sword")
			convey.So(extract.CanonicalItem("Dragon Scale (9f1c)"), convey.ShouldEqual, "Dragon Scale")
			convey.So(extract.CanonicalItem("Shield"), convey.ShouldEqual, "Shield")
			convey.So(extract.CanonicalItem("(orphan)"), convey.ShouldEqual, "")
		})

		convey.Convey("Then applying it twice should equal applying it once", func() {
			for _, n := range names {
				once := extract.CanonicalItem(n)
				convey.So(extract.CanonicalItem(once), convey.ShouldEqual, once)
			}
		})
	})
}

func TestParseAmount(t *testing.T) {
	convey.Convey("Given dollar figures", t, func() {
		d, ok := extract.ParseAmount("1,234.56")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(d.StringFixed(2), convey.ShouldEqual, "1234.56")

		d, ok = extract.ParseAmount("20,50")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(d.StringFixed(2), convey.ShouldEqual, "2050.00")

		d, ok = extract.ParseAmount("5.005")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(d.String(), convey.ShouldEqual, "5.005")

		_, ok = extract.ParseAmount("")
		convey.So(ok, convey.ShouldBeFalse)

		_, ok = extract.ParseAmount("...")
		convey.So(ok, convey.ShouldBeFalse)
	})
}
