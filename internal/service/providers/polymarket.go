package providers

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"HypeRadar/internal/domain/models"
	xutil "HypeRadar/pkg/util"
)

// Subject is a watchlist symbol with the names it goes by in prose.
type Subject struct {
	Ticker  string
	Aliases []string
}

// Matcher tags free text with the watchlist tickers it mentions. Symbols
// match case-sensitively on word boundaries (optionally with a leading $);
// aliases match case-insensitively.
type Matcher struct {
	subjects []compiledSubject
}

type compiledSubject struct {
	ticker string
	symbol *regexp.Regexp
	alias  *regexp.Regexp
}

func NewMatcher(subjects []Subject) *Matcher {
	m := &Matcher{}
	for _, s := range subjects {
		t := xutil.NormalizeTicker(s.Ticker)
		if t == "" {
			continue
		}
		cs := compiledSubject{
			ticker: t,
			symbol: regexp.MustCompile(`(^|[^A-Za-z0-9])\$?` + regexp.QuoteMeta(t) + `($|[^A-Za-z0-9])`),
		}
		var alts []string
		for _, a := range s.Aliases {
			if a = strings.TrimSpace(a); a != "" {
				alts = append(alts, regexp.QuoteMeta(a))
			}
		}
		if len(alts) > 0 {
			cs.alias = regexp.MustCompile(`(?i)\b(` + strings.Join(alts, "|") + `)\b`)
		}
		m.subjects = append(m.subjects, cs)
	}
	return m
}

// Match returns the tickers mentioned in any of texts, in watchlist order.
func (m *Matcher) Match(texts ...string) []string {
	var out []string
	for _, s := range m.subjects {
		for _, txt := range texts {
			if s.symbol.MatchString(txt) || (s.alias != nil && s.alias.MatchString(txt)) {
				out = append(out, s.ticker)
				break
			}
		}
	}
	return out
}

// Polymarket reads active prediction-market events from the Gamma API.
type Polymarket struct {
	*base
	limit   int
	matcher *Matcher
}

func NewPolymarket(baseURL string, limit int, matcher *Matcher, opts ...Option) *Polymarket {
	if limit <= 0 {
		limit = 50
	}
	if matcher == nil {
		matcher = NewMatcher(nil)
	}
	return &Polymarket{base: newBase("polymarket", baseURL, opts), limit: limit, matcher: matcher}
}

type gammaEvent struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	EndDate    string        `json:"endDate"`
	Active     bool          `json:"active"`
	Closed     bool          `json:"closed"`
	Volume24hr flexFloat     `json:"volume24hr"`
	Markets    []gammaMarket `json:"markets"`
}

type gammaMarket struct {
	Question      string `json:"question"`
	Outcomes      string `json:"outcomes"`
	OutcomePrices string `json:"outcomePrices"`
}

// FetchMacroEvents returns the most traded open events, highest 24h volume
// first. Probability is the highest "Yes" price across an event's markets.
// Events without a parseable market are skipped.
func (p *Polymarket) FetchMacroEvents(ctx context.Context) ([]models.MacroEvent, error) {
	q := url.Values{
		"active":    {"true"},
		"closed":    {"false"},
		"limit":     {strconv.Itoa(p.limit)},
		"order":     {"volume24hr"},
		"ascending": {"false"},
	}
	var events []gammaEvent
	if err := p.getJSON(ctx, "/events", q, &events); err != nil {
		return nil, err
	}

	out := make([]models.MacroEvent, 0, len(events))
	for _, e := range events {
		if e.Closed {
			continue
		}
		prob, ok := maxYes(e.Markets)
		if !ok {
			continue
		}
		texts := []string{e.Title}
		for _, m := range e.Markets {
			texts = append(texts, m.Question)
		}
		ev := models.MacroEvent{
			Question:        e.Title,
			Probability:     prob,
			AffectedTickers: p.matcher.Match(texts...),
			Volume24h:       float64(e.Volume24hr),
		}
		if t, ok := xutil.ParseTime(e.EndDate); ok {
			ev.EndDate = t
		}
		if ev.AffectedTickers == nil {
			ev.AffectedTickers = []string{}
		}
		out = append(out, ev)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Volume24h > out[j].Volume24h })
	if len(out) > p.limit {
		out = out[:p.limit]
	}
	return out, nil
}

func maxYes(markets []gammaMarket) (float64, bool) {
	var best float64
	found := false
	for _, m := range markets {
		yes, ok := yesPrice(m)
		if !ok {
			continue
		}
		if !found || yes > best {
			best, found = yes, true
		}
	}
	return best, found
}

// yesPrice decodes the JSON-in-a-string outcome arrays Gamma returns.
func yesPrice(m gammaMarket) (float64, bool) {
	var outcomes, prices []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return 0, false
	}
	if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil {
		return 0, false
	}
	for i, o := range outcomes {
		if i >= len(prices) || !strings.EqualFold(o, "yes") {
			continue
		}
		v, err := strconv.ParseFloat(prices[i], 64)
		if err != nil || v < 0 || v > 1 {
			return 0, false
		}
		return v, true
	}
	return 0, false
}
