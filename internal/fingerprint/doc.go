// Package fingerprint turns raw stack-trace text into a stable identity
// for grouping failure occurrences.
//
// # Overview
//
// Crash reports for the same underlying bug rarely arrive as identical
// text: absolute paths, line numbers, memory addresses, and whitespace
// all vary between machines and builds. Normalize strips those volatile
// tokens, keeps a bounded prefix of the meaningful frames, and hashes
// the result into a short fingerprint. Two occurrences with equivalent
// normalized frames always yield the same fingerprint, so the
// aggregator can treat fingerprint equality as "same bug".
//
// # Determinism
//
// Normalize is a pure function: identical input text (up to incidental
// whitespace and case inside frame tokens) produces the identical
// Signature. It never returns an error; input with no recognizable
// frames degrades to a sentinel fingerprint so unparseable reports
// group together in one bucket instead of scattering across unique
// "empty" identities.
package fingerprint
