// Package normalisers provides implementations of the Normaliser
// interface for the supported payload kinds. Each normaliser knows how
// to turn one kind of input (inline text, a web page, a stored file)
// into plain text plus provenance.
//
// Normalisers are registered with the Registry at startup.
package normalisers
