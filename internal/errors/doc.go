// Package apperrors holds the error classes of fibsum and the exit codes
// they map to. Every type carrying a cause implements Unwrap, so callers
// match on them with errors.Is and errors.As through any amount of %w
// wrapping.
package apperrors
