// Package diagnostic provides structured errors, warnings and infos for
// decoding, schema validation and lint.
//
// Key capabilities:
//   - Coded entries with the type and field path they relate to
//   - "Did you mean" suggestions for unknown type names
//   - Folding error entries into a single error for callers that refuse the call
//   - Logging entries through zap
package diagnostic
