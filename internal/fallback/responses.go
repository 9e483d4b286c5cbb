package fallback

import (
	"math/rand"

	"github.com/themobileprof/ayu-be/internal/classifier"
	"github.com/themobileprof/ayu-be/internal/phrases"
	"github.com/themobileprof/ayu-be/internal/response"
)

// DefaultReason is the error reported when no more specific reason is known.
const DefaultReason = "API connection failed"

// Picker returns an index in [0, n). n is always positive.
type Picker func(n int) int

// Selector returns canned replies when no other stage produced an answer.
type Selector struct {
	pools      map[string]phrases.LocalizedList
	classifier *classifier.Classifier
	pick       Picker
}

// NewSelector creates a selector over the phrasebook pools. A nil pick
// uses math/rand.
func NewSelector(book *phrases.Book, c *classifier.Classifier, pick Picker) *Selector {
	if pick == nil {
		pick = rand.Intn
	}
	return &Selector{
		pools:      book.Fallback.Pools,
		classifier: c,
		pick:       pick,
	}
}

// Select returns a degraded result for message with the default reason.
func (s *Selector) Select(message, lang string) response.Result {
	return s.SelectWithReason(message, lang, DefaultReason)
}

// SelectWithReason returns a degraded result carrying reason as its error.
func (s *Selector) SelectWithReason(message, lang, reason string) response.Result {
	if reason == "" {
		reason = DefaultReason
	}
	return response.Degraded(s.Pick(s.classifier.Category(message), lang), reason)
}

// Pick returns one reply from the category pool for lang. Unknown
// categories use the general pool; missing translations use English.
func (s *Selector) Pick(category, lang string) string {
	pool, ok := s.pools[category]
	if !ok {
		pool = s.pools[phrases.CategoryGeneral]
	}
	texts := pool.For(lang)
	if len(texts) == 0 {
		return ""
	}

	i := s.pick(len(texts))
	if i < 0 || i >= len(texts) {
		i = 0
	}
	return texts[i]
}
