// Package samplelog writes synthetic trade logs in the line format the digest engine reads.
package samplelog

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/tradedigest/pkg/logger"
)

const (
	perMille         = 1000
	timestampLayout  = "2006-01-02 15:04:05"
	secondsPerDay    = 24 * 60 * 60
	maxQuantity      = 5
	maxCents         = 250000
	idLength         = 8
	idShare          = 300 // per mille of items carrying an identifier
	cancelCheckEvery = 1024
)

// Item and player names avoid the letter x and the words the engine keys on.
var (
	playerNames = []string{
		"Alice", "Bob", "Carol", "Dave", "Erin", "Frank", "Grace", "Heidi",
		"Ivan", "Judy", "Mallory", "Niaj", "Olivia", "Peggy", "Rupert", "Sybil",
		"Trent", "Victor", "Walter", "Yara",
	}
	itemNames = []string{
		"Sword", "Shield", "Apple", "Bow", "Arrow", "Health Potion", "Mana Potion",
		"Helmet", "Boots", "Ring", "Amulet", "Lantern", "Rope", "Map", "Gem",
		"Dagger", "Staff", "Cloak",
	}
	noiseLines = []string{
		"%s joined the market",
		"%s logged out",
		"Server: autosave complete (%s)",
		"%s listed an item and then withdrew it",
		"Auction house: %s sold and bought nothing today",
	}
)

// Generator writes sample logs.
type Generator struct {
	cfg    Config
	rng    *rand.Rand
	src    *rand.ChaCha8
	logger logger.Logger
	items  []string
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger used for progress messages.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// New returns a Generator for cfg.
func New(cfg Config, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var seed [32]byte
	binary.LittleEndian.PutUint64(seed[:], cfg.Seed)
	src := rand.NewChaCha8(seed)

	g := &Generator{
		cfg:    cfg,
		src:    src,
		rng:    rand.New(src),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.items = g.catalogue()
	return g, nil
}

// catalogue pairs every item name with a plain and an identified variant.
func (g *Generator) catalogue() []string {
	items := make([]string, 0, 2*len(itemNames))
	for _, name := range itemNames {
		items = append(items, name, name+"("+g.shortID()+")")
	}
	return items
}

// shortID draws a hex identifier from the seeded source so the log stays reproducible.
func (g *Generator) shortID() string {
	id, err := uuid.NewRandomFromReader(g.src)
	if err != nil {
		return fmt.Sprintf("%016x", g.rng.Uint64())[:idLength]
	}
	return strings.ReplaceAll(id.String(), "-", "")[:idLength]
}

func (g *Generator) player() string {
	i := g.rng.IntN(g.cfg.Players)
	name := playerNames[i%len(playerNames)]
	if round := i / len(playerNames); round > 0 {
		name += strconv.Itoa(round + 1)
	}
	return name
}

func (g *Generator) item() string {
	idx := g.rng.IntN(len(itemNames)) * 2
	if g.rng.IntN(perMille) < idShare {
		idx++
	}
	return g.items[idx]
}

// amount renders a dollar figure with thousands separators above $999.99.
func (g *Generator) amount() string {
	cents := g.rng.IntN(maxCents) + 1
	dollars := strconv.Itoa(cents / 100)
	if len(dollars) > 3 {
		dollars = dollars[:len(dollars)-3] + "," + dollars[len(dollars)-3:]
	}
	return fmt.Sprintf("%s.%02d", dollars, cents%100)
}

// Generate writes cfg.Lines lines to w in timestamp order.
func (g *Generator) Generate(ctx context.Context, w io.Writer) (Stats, error) {
	var stats Stats
	start := time.Now()

	bw := bufio.NewWriter(w)
	step := time.Duration(0)
	if g.cfg.Lines > 0 {
		step = time.Duration(g.cfg.Days) * secondsPerDay * time.Second / time.Duration(g.cfg.Lines)
	}

	for i := range g.cfg.Lines {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		ts := g.cfg.Start.Add(time.Duration(i) * step)
		if step > time.Second {
			ts = ts.Add(time.Duration(g.rng.Int64N(int64(step/time.Second))) * time.Second)
		}
		line := g.line(ts.Format(timestampLayout), &stats)
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return stats, fmt.Errorf("write line %d: %w", i+1, err)
		}
		stats.Lines++
	}
	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("flush: %w", err)
	}

	g.logger.Info(ctx, "sample log written",
		logger.Int("lines", stats.Lines),
		logger.Int("sales", stats.Sales),
		logger.Int("purchases", stats.Purchases),
		logger.Int("noise", stats.Noise),
		logger.Int("malformed", stats.Malformed),
		logger.Duration("took", time.Since(start)),
	)
	return stats, nil
}

func (g *Generator) line(ts string, stats *Stats) string {
	roll := g.rng.IntN(perMille)
	switch {
	case roll < g.cfg.Noise:
		stats.Noise++
		msg := noiseLines[g.rng.IntN(len(noiseLines))]
		return fmt.Sprintf("[%s] - "+msg, ts, g.player())
	case roll < g.cfg.Noise+g.cfg.Malformed:
		stats.Malformed++
		return fmt.Sprintf("[%s] - %s %s %d x %s", ts, g.player(), g.verb(), g.rng.IntN(maxQuantity)+1, g.item())
	}

	verb := g.verb()
	if verb == "sold" {
		stats.Sales++
	} else {
		stats.Purchases++
	}
	return fmt.Sprintf("[%s] - %s %s %d x %s for $%s",
		ts, g.player(), verb, g.rng.IntN(maxQuantity)+1, g.item(), g.amount())
}

func (g *Generator) verb() string {
	if g.rng.IntN(2) == 0 {
		return "sold"
	}
	return "bought"
}
