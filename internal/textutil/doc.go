// Package textutil provides the label comparison primitives used to match a
// vision-model guess against registry artifact names.
//
// The primary use cases are:
//   - Normalizing labels to a canonical ASCII form (case, diacritics, punctuation)
//   - Tokenizing labels into significant word sets, dropping filler stopwords
//   - Scoring two labels with a tiered exact/containment/Jaccard strategy
//
// Everything here is pure and safe for concurrent use. Stopwords are supplied
// through a Tokenizer value so callers can tune them from configuration.
package textutil
