package scrape

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/adelaroche/bosswatch/internal/boss"
)

// Structural anchors for the world boss page. The headline boss sits in a
// highlighted card; the fallbacks mirror the site's markup drift over time.
var nextCardSelectors = []string{
	"div.pointer-events-auto div.border-indigo-400",
	"div.w-full.bg-white.border-2.border-indigo-400",
	"div.w-full.bg-white.border-2",
	"div.w-full.bg-white",
}

const (
	nextNameSelector  = "p.text-xs.sm\\:text-sm.font-medium.text-gray-900"
	nextLevelSelector = "p.text-xs.sm\\:text-sm.text-gray-500"
	nextTimeSelector  = "p.text-xs.sm\\:text-sm.text-gray-400"

	rosterRowSelector   = "div.divide-y div.flex.justify-between"
	rosterNameSelector  = "div.font-bold"
	rosterLevelSelector = "div.text-gray-600.font-normal"
	rosterTimeSelector  = "div.text-xs.sm\\:text-sm.text-gray-500.font-normal"
)

var bossIDRe = regexp.MustCompile(`worldboss/view/(\d+)`)

// ParserConfig carries the classification policy and URL rewriting base.
type ParserConfig struct {
	// ApproachThreshold splits cooldown from approaching.
	ApproachThreshold time.Duration
	// BaseURL absolutizes relative icon paths.
	BaseURL string
}

// Parser turns raw markup into a boss.Status. It never guesses: a missing
// or ambiguous anchor is a *ParseError, not a default record.
type Parser struct {
	cfg ParserConfig
}

// NewParser builds a Parser.
func NewParser(cfg ParserConfig) *Parser {
	if cfg.ApproachThreshold <= 0 {
		cfg.ApproachThreshold = 5 * time.Minute
	}
	return &Parser{cfg: cfg}
}

// Parse extracts the headline boss and the upcoming roster from html.
func (p *Parser) Parse(html []byte, capturedAt time.Time) (*boss.Status, error) {
	if len(bytes.TrimSpace(html)) == 0 {
		return nil, &ParseError{Reason: ReasonEmptyDocument}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &ParseError{Reason: ReasonEmptyDocument, Detail: err.Error()}
	}

	card := p.findNextCard(doc)
	if card == nil {
		return nil, &ParseError{Reason: ReasonAnchorNotFound}
	}

	name := text(card, nextNameSelector)
	if name == "" {
		return nil, &ParseError{Reason: ReasonNameMissing}
	}

	// A card with no countdown and no active marker is a real reading:
	// the previous boss is over and the next slot has not been scheduled.
	// The tracker turns it into Ended when the prior phase was Active.
	etaLabel := text(card, nextTimeSelector)
	phase := boss.PhaseUnknown
	seconds := 0
	if etaLabel != "" {
		var active bool
		var err error
		seconds, active, err = boss.ParseETA(etaLabel)
		if err != nil {
			return nil, &ParseError{Reason: ReasonETAUnreadable, Detail: etaLabel}
		}
		phase = boss.Classify(seconds, active, p.cfg.ApproachThreshold)
	}

	rec := boss.StatusRecord{
		BossName:   name,
		Level:      text(card, nextLevelSelector),
		BossID:     extractBossID(attrOr(card, "a[href*='worldboss/view']", "href", "")),
		IconURL:    p.absolutize(attrOr(card, "img", "src", "")),
		Phase:      phase,
		CapturedAt: capturedAt,
	}
	if phase.HasCountdown() {
		rec.SecondsRemaining = seconds
		rec.SpawnAt = capturedAt.Add(time.Duration(seconds) * time.Second)
	}

	return &boss.Status{
		Record: rec,
		Others: p.parseRoster(doc, capturedAt),
	}, nil
}

// findNextCard walks the anchor fallbacks in order and requires an
// unambiguous match.
func (p *Parser) findNextCard(doc *goquery.Document) *goquery.Selection {
	for _, sel := range nextCardSelectors {
		found := doc.Find(sel)
		if found.Length() == 1 {
			return found.First()
		}
		if found.Length() > 1 {
			// Multiple candidates under one anchor means the page layout
			// shifted; refuse to pick one.
			return nil
		}
	}
	return nil
}

// parseRoster extracts the non-headline bosses. Rows that fail to parse are
// skipped; the roster is display-only and must not fail the poll.
func (p *Parser) parseRoster(doc *goquery.Document, capturedAt time.Time) []boss.BossEntry {
	var entries []boss.BossEntry
	doc.Find(rosterRowSelector).Each(func(_ int, row *goquery.Selection) {
		name := text(row, rosterNameSelector)
		if name == "" {
			return
		}
		entry := boss.BossEntry{
			BossName: name,
			Level:    text(row, rosterLevelSelector),
			ETALabel: text(row, rosterTimeSelector),
			IconURL:  p.absolutize(attrOr(row, "img", "src", "")),
		}
		if onclick, ok := row.Attr("onclick"); ok {
			entry.BossID = extractBossID(onclick)
		}
		if secs, active, err := boss.ParseETA(entry.ETALabel); err == nil && !active {
			entry.SecondsRemaining = secs
			entry.SpawnAt = capturedAt.Add(time.Duration(secs) * time.Second)
		}
		entries = append(entries, entry)
	})
	return entries
}

func (p *Parser) absolutize(src string) string {
	if src == "" || strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	base := strings.TrimSuffix(p.cfg.BaseURL, "/")
	if !strings.HasPrefix(src, "/") {
		src = "/" + src
	}
	return base + src
}

func extractBossID(s string) string {
	m := bossIDRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

func text(sel *goquery.Selection, query string) string {
	return strings.TrimSpace(sel.Find(query).First().Text())
}

func attrOr(sel *goquery.Selection, query, attr, def string) string {
	v, ok := sel.Find(query).First().Attr(attr)
	if !ok {
		return def
	}
	return v
}
