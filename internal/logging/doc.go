// Package logging provides a unified logging interface for fibsum.
// It abstracts the underlying zerolog implementation so that ranks, transports
// and the coordinator log consistently with structured fields.
package logging
