package scrape

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/adelaroche/bosswatch/internal/boss"
)

// DetailFetcher pulls combat stats from the per-boss view page. It is
// strictly best-effort: any failure returns zero stats and a Debug log.
type DetailFetcher struct {
	fetcher     *Fetcher
	urlTemplate string
	logger      *zap.Logger
}

// NewDetailFetcher builds a DetailFetcher. urlTemplate must contain one
// %s verb for the boss id.
func NewDetailFetcher(fetcher *Fetcher, urlTemplate string, logger *zap.Logger) *DetailFetcher {
	return &DetailFetcher{fetcher: fetcher, urlTemplate: urlTemplate, logger: logger}
}

// Stats fetches and parses the stats for bossID. A missing id or any
// fetch/parse problem yields empty stats.
func (d *DetailFetcher) Stats(ctx context.Context, bossID string) boss.Stats {
	if bossID == "" {
		return boss.Stats{}
	}
	page, err := d.fetcher.FetchURL(ctx, fmt.Sprintf(d.urlTemplate, bossID))
	if err != nil {
		d.logger.Debug("boss detail fetch failed", zap.String("boss_id", bossID), zap.Error(err))
		return boss.Stats{}
	}
	stats, err := parseStats(page.Body)
	if err != nil {
		d.logger.Debug("boss detail parse failed", zap.String("boss_id", bossID), zap.Error(err))
		return boss.Stats{}
	}
	return stats
}

// statLabels maps dt label prefixes to stat setters. The site serves both
// English and French labels depending on the account locale.
var statLabels = []struct {
	prefixes []string
	assign   func(*boss.Stats, int)
}{
	{prefixes: []string{"health", "vie", "hp"}, assign: func(s *boss.Stats, v int) { s.HP = v }},
	{prefixes: []string{"strength", "force", "str"}, assign: func(s *boss.Stats, v int) { s.Strength = v }},
	{prefixes: []string{"dexterity", "dexter", "dex"}, assign: func(s *boss.Stats, v int) { s.Dexterity = v }},
	{prefixes: []string{"defence", "defense", "def"}, assign: func(s *boss.Stats, v int) { s.Defence = v }},
}

var statFallbackRe = regexp.MustCompile(`(?i)(health|strength|dexterity|defence|defense)\s*:?\s*([0-9][0-9\s'.,\x{00A0}]*)`)

// parseStats reads the dt/dd stats grid, falling back to a loose text scan
// when the grid is absent.
func parseStats(html []byte) (boss.Stats, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return boss.Stats{}, fmt.Errorf("parse detail page: %w", err)
	}

	var stats boss.Stats
	doc.Find("dl dt").Each(func(_ int, dt *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(dt.Text()))
		dd := dt.NextFiltered("dd")
		if dd.Length() == 0 {
			return
		}
		value := cleanNumber(dd.Text())
		if value == 0 {
			return
		}
		for _, sl := range statLabels {
			for _, prefix := range sl.prefixes {
				if strings.HasPrefix(label, prefix) {
					sl.assign(&stats, value)
					return
				}
			}
		}
	})

	if stats == (boss.Stats{}) {
		text := doc.Text()
		for _, m := range statFallbackRe.FindAllStringSubmatch(text, -1) {
			value := cleanNumber(m[2])
			if value == 0 {
				continue
			}
			label := strings.ToLower(m[1])
			for _, sl := range statLabels {
				for _, prefix := range sl.prefixes {
					if strings.HasPrefix(label, prefix) {
						sl.assign(&stats, value)
					}
				}
			}
		}
	}
	return stats, nil
}

func cleanNumber(raw string) int {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}
