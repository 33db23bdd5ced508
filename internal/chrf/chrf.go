// Package chrf computes the character n-gram F-score with the same
// defaults and smoothing as sacreBLEU: character order 6, no word n-grams,
// beta 2, whitespace ignored.
package chrf

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/valpere/indicmt/internal"
)

const (
	DefaultCharOrder = 6
	DefaultBeta      = 2.0

	eps = 1e-16
)

type Config struct {
	CharOrder  int     `mapstructure:"char_order"`
	Beta       float64 `mapstructure:"beta"`
	Whitespace bool    `mapstructure:"whitespace"`
}

func DefaultConfig() Config {
	return Config{CharOrder: DefaultCharOrder, Beta: DefaultBeta}
}

// Stats holds (hypothesis count, reference count, matches) for each order,
// flattened. Corpus statistics are the element-wise sum over sentences.
type Stats []int

func (s Stats) Add(other Stats) {
	for i := range s {
		s[i] += other[i]
	}
}

type Scorer struct {
	cfg Config
}

func New(cfg Config) *Scorer {
	if cfg.CharOrder <= 0 {
		cfg.CharOrder = DefaultCharOrder
	}
	if cfg.Beta <= 0 {
		cfg.Beta = DefaultBeta
	}
	return &Scorer{cfg: cfg}
}

func (s *Scorer) prepare(text string) []rune {
	if s.cfg.Whitespace {
		return []rune(text)
	}
	return []rune(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text))
}

func ngrams(runes []rune, n int) (map[string]int, int) {
	counts := make(map[string]int)
	total := 0
	for i := 0; i+n <= len(runes); i++ {
		counts[string(runes[i:i+n])]++
		total++
	}
	return counts, total
}

// SentenceStats extracts n-gram statistics for one hypothesis/reference
// pair.
func (s *Scorer) SentenceStats(hyp, ref string) Stats {
	h, r := s.prepare(hyp), s.prepare(ref)
	stats := make(Stats, 3*s.cfg.CharOrder)
	for n := 1; n <= s.cfg.CharOrder; n++ {
		hc, ht := ngrams(h, n)
		rc, rt := ngrams(r, n)
		match := 0
		for g, c := range hc {
			match += min(c, rc[g])
		}
		i := 3 * (n - 1)
		stats[i], stats[i+1], stats[i+2] = ht, rt, match
	}
	return stats
}

// Score turns statistics into a 0-100 score. Precision and recall are
// averaged over the orders for which both sides had n-grams, then combined
// into an F-beta score.
func (s *Scorer) Score(stats Stats) float64 {
	factor := s.cfg.Beta * s.cfg.Beta
	var avgPrec, avgRec float64
	effective := 0

	for n := 0; n < s.cfg.CharOrder; n++ {
		nHyp, nRef, nMatch := stats[3*n], stats[3*n+1], stats[3*n+2]
		prec, rec := eps, eps
		if nHyp > 0 {
			prec = float64(nMatch) / float64(nHyp)
		}
		if nRef > 0 {
			rec = float64(nMatch) / float64(nRef)
		}
		if nHyp > 0 && nRef > 0 {
			effective++
		}
		avgPrec += prec
		avgRec += rec
	}

	if effective == 0 {
		return 0
	}
	avgPrec /= float64(effective)
	avgRec /= float64(effective)
	if avgPrec+avgRec == 0 {
		return 0
	}
	return 100 * (1 + factor) * avgPrec * avgRec / (factor*avgPrec + avgRec)
}

func (s *Scorer) Sentence(hyp, ref string) float64 {
	return s.Score(s.SentenceStats(hyp, ref))
}

// Corpus sums statistics over aligned hypotheses and references. Unequal
// lengths are an alignment error.
func (s *Scorer) Corpus(hyps, refs []string) (float64, error) {
	if err := internal.CheckCounts(internal.ErrAlignment, "hypotheses", len(hyps), "references", len(refs)); err != nil {
		return 0, err
	}
	total := make(Stats, 3*s.cfg.CharOrder)
	for i := range hyps {
		total.Add(s.SentenceStats(hyps[i], refs[i]))
	}
	return s.Score(total), nil
}

// Signature describes the configuration the way sacreBLEU prints it.
func (s *Scorer) Signature() string {
	ws := "no"
	if s.cfg.Whitespace {
		ws = "yes"
	}
	return fmt.Sprintf("nc:%d|nw:0|space:%s|beta:%g", s.cfg.CharOrder, ws, s.cfg.Beta)
}
