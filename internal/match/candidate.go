package match

import (
	"sort"
	"strings"
)

// Candidate is a known name ranked against a looked-up name.
type Candidate struct {
	Name string

	// Similarity of the normalized names (0-1)
	Score float64

	// Metadata for debugging/explanation
	NormalizedName   string
	NormalizedTarget string
}

// CandidateList is a list of candidates with ranking functionality.
type CandidateList []Candidate

// RankNames ranks known names by similarity to target.
// Qualified names ("pkg/path.Type") are compared on their last segment; an
// unqualified target is also compared against whole names, the better score wins.
// Returns candidates sorted by score (descending).
func RankNames(target string, names []string) CandidateList {
	candidates := make(CandidateList, 0, len(names))

	targetNorm := NormalizeIdent(target)
	targetShort := NormalizeTypeName(shortName(target))
	qualified := shortName(target) != target

	for _, name := range names {
		norm := NormalizeIdent(name)

		score := Similarity(NormalizeTypeName(shortName(name)), targetShort)
		if whole := Similarity(norm, targetNorm); !qualified && whole > score {
			score = whole
		}

		candidates = append(candidates, Candidate{
			Name:             name,
			Score:            score,
			NormalizedName:   norm,
			NormalizedTarget: targetNorm,
		})
	}

	// Sort by score (descending), then by name for determinism
	sort.Sort(candidates)

	return candidates
}

// Suggest returns up to n names scoring at least DefaultMinScore against target.
func Suggest(target string, names []string, n int) []string {
	ranked := RankNames(target, names).AboveThreshold(DefaultMinScore).Top(n)

	out := make([]string, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, c.Name)
	}

	return out
}

func shortName(name string) string {
	if i := strings.LastIndexAny(name, "./"); i >= 0 {
		return name[i+1:]
	}

	return name
}

// Len implements sort.Interface.
func (c CandidateList) Len() int { return len(c) }

// Swap implements sort.Interface.
func (c CandidateList) Swap(i, j int) { c[i], c[j] = c[j], c[i] }

// Less implements sort.Interface.
// Sorts by score descending, then by name for determinism.
func (c CandidateList) Less(i, j int) bool {
	// Higher score comes first
	if c[i].Score != c[j].Score {
		return c[i].Score > c[j].Score
	}
	// Tie-breaker: alphabetical by name
	return c[i].Name < c[j].Name
}

// Top returns the top n candidates.
func (c CandidateList) Top(n int) CandidateList {
	if n >= len(c) {
		return c
	}
	return c[:n]
}

// Best returns the best candidate, or nil if no candidates.
func (c CandidateList) Best() *Candidate {
	if len(c) == 0 {
		return nil
	}
	return &c[0]
}

// IsAmbiguous returns true if the top two candidates are within the threshold.
func (c CandidateList) IsAmbiguous(threshold float64) bool {
	if len(c) < 2 {
		return false
	}
	diff := c[0].Score - c[1].Score
	return diff < threshold
}

// AboveThreshold returns candidates with score above the threshold.
func (c CandidateList) AboveThreshold(threshold float64) CandidateList {
	var result CandidateList
	for _, cand := range c {
		if cand.Score >= threshold {
			result = append(result, cand)
		}
	}
	return result
}

// Suggestion thresholds.
const (
	// DefaultMinScore is the minimum score for a name to be suggested.
	DefaultMinScore = 0.5
	// DefaultAmbiguityThreshold is the score difference that marks ambiguity.
	DefaultAmbiguityThreshold = 0.1
)
