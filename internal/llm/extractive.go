package llm

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

// ExtractiveAnswerer answers offline by quoting the context sentences that
// best match the question. Sentences are scored by the normalised frequency
// of the question's content words and returned in context order.
type ExtractiveAnswerer struct {
	maxSentences int
	tokenPattern *regexp.Regexp
	sentences    *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewExtractiveAnswerer creates an answerer quoting up to maxSentences
// sentences (2 when maxSentences <= 0).
func NewExtractiveAnswerer(maxSentences int) *ExtractiveAnswerer {
	if maxSentences <= 0 {
		maxSentences = 2
	}
	return &ExtractiveAnswerer{
		maxSentences: maxSentences,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		sentences:    regexp.MustCompile(`[^.!?]+[.!?]*`),
		stopwords:    defaultStopwords(),
	}
}

// Name identifies the answerer.
func (e *ExtractiveAnswerer) Name() string { return "extractive" }

// Answer returns the best matching sentences, or NoContextAnswer when chunks
// is empty. Context with no word in common with the question yields its
// first sentences.
func (e *ExtractiveAnswerer) Answer(_ context.Context, question string, chunks []string) (string, error) {
	if len(chunks) == 0 {
		return NoContextAnswer, nil
	}
	var sentences []string
	seen := map[string]bool{}
	for _, c := range chunks {
		for _, s := range e.sentences.FindAllString(c, -1) {
			s = strings.Join(strings.Fields(s), " ")
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return NoContextAnswer, nil
	}

	// Question words weighted by how often the context mentions them.
	query := map[string]float64{}
	for _, tok := range e.tokens(question) {
		query[tok] = 0
	}
	for _, s := range sentences {
		for _, tok := range e.tokens(s) {
			if _, ok := query[tok]; ok {
				query[tok]++
			}
		}
	}
	maxF := 0.0
	for _, v := range query {
		maxF = math.Max(maxF, v)
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, s := range sentences {
		toks := e.tokens(s)
		score := 0.0
		for _, tok := range toks {
			if f, ok := query[tok]; ok && maxF > 0 {
				// Rarer question words count for more.
				score += 1 + (1 - f/maxF)
			}
		}
		if l := float64(len(toks)); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = scored{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	n := min(e.maxSentences, len(scores))
	if scores[0].score > 0 {
		for n > 0 && scores[n-1].score == 0 {
			n--
		}
	}
	selected := make([]int, n)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, n)
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

func (e *ExtractiveAnswerer) tokens(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, ok := e.stopwords[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "where", "who", "whom", "which", "when", "why", "how", "does", "do", "did",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
