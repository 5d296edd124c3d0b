// Package collective abstracts the message-passing collaborator used by the
// distributed sum: a fixed group of ranks that can broadcast a value from one
// root to everyone and gather one value per rank at a root.
//
// Both operations are blocking collectives: every rank of the group must call
// them in the same order. A failure at any rank is reported as an
// apperrors.CollectiveError and is not recoverable; the caller aborts the run.
//
// Two transports implement Communicator: the in-process World in this package
// (one goroutine per rank, channels as links) and the RabbitMQ transport in
// package amqpcomm (one process per rank).
package collective
