// Package match ranks known type names against an unknown one for
// "did you mean" suggestions.
//
// Key functions:
//   - NormalizeIdent / NormalizeTypeName: case and separator folding
//   - Levenshtein / Similarity: rune edit distance and its 0-1 score
//   - RankNames: ranks known names against a looked-up name
//   - Suggest: the best few names above a similarity threshold
package match
