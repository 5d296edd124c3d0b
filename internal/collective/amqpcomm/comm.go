// Package amqpcomm implements collective.Communicator over a RabbitMQ broker,
// with one OS process per rank.
//
// Topology for a run R of size N:
//
//	R.bcast        fanout exchange, bound to every R.bcast.<rank> queue
//	R.bcast.<r>    broadcasts for rank r (the root reads its own copy too)
//	R.gather.<r>   values gathered at rank r when it acts as root
//
// Every process declares the whole topology before its first collective, so a
// root may publish before slower ranks have connected. Messages carry "rank"
// and "seq" headers; sequence matching is shared with the in-process transport.
package amqpcomm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/agbru/fibsum/internal/collective"
	"github.com/agbru/fibsum/internal/logging"
)

const (
	headerRank = "rank"
	headerSeq  = "seq"
	appID      = "fibsum"
)

// Channel is the subset of *amqp.Channel used by Comm.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	QueueDelete(name string, ifUnused, ifEmpty, noWait bool) (int, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

var _ Channel = (*amqp.Channel)(nil)

// Comm is one rank's communicator over the broker. It must only be used by
// one goroutine.
type Comm struct {
	cfg       Config
	ch        Channel
	conn      io.Closer
	logger    logging.Logger
	consumers map[string]<-chan amqp.Delivery

	bcastSeq  uint64
	gatherSeq uint64
	bcastBox  collective.Mailbox
	gatherBox collective.Mailbox
}

var _ collective.Communicator = (*Comm)(nil)

// Dial connects to the broker, retrying while it is unavailable, and declares
// the run topology.
func Dial(ctx context.Context, cfg Config, logger logging.Logger) (*Comm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, err := dialWithRetry(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp: failed to open channel: %w", err)
	}
	c, err := New(ch, cfg, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func dialWithRetry(ctx context.Context, cfg Config, logger logging.Logger) (*amqp.Connection, error) {
	attempts := cfg.DialRetries
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		conn, err := amqp.Dial(cfg.URL)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.Debug("broker not reachable yet",
			logging.Int("attempt", i+1), logging.Int("rank", cfg.Rank), logging.Err(err))
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(cfg.RetryInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("amqp: failed to connect after %d attempts: %w", attempts, lastErr)
}

// New builds a communicator over an open channel and declares the topology.
func New(ch Channel, cfg Config, logger logging.Logger) (*Comm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	c := &Comm{
		cfg:       cfg,
		ch:        ch,
		logger:    logger,
		consumers: make(map[string]<-chan amqp.Delivery),
	}
	if err := c.declareTopology(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Comm) declareTopology() error {
	exchange := c.cfg.BroadcastExchange()
	if err := c.ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, false, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp: declare exchange %s: %w", exchange, err)
	}
	args := queueArgs(c.cfg.QueueExpiry)
	for r := 0; r < c.cfg.Size; r++ {
		for _, name := range []string{c.cfg.BroadcastQueue(r), c.cfg.GatherQueue(r)} {
			if _, err := c.ch.QueueDeclare(name, false, false, false, false, args); err != nil {
				return fmt.Errorf("amqp: declare queue %s: %w", name, err)
			}
		}
		if err := c.ch.QueueBind(c.cfg.BroadcastQueue(r), "", exchange, false, nil); err != nil {
			return fmt.Errorf("amqp: bind queue %s: %w", c.cfg.BroadcastQueue(r), err)
		}
	}
	c.logger.Debug("topology declared", logging.String("run", c.cfg.RunID), logging.Int("size", c.cfg.Size))
	return nil
}

// queueArgs sets x-expires so queues re-declared by a late rank after
// their owner closed do not outlive the run.
func queueArgs(expiry time.Duration) amqp.Table {
	if expiry <= 0 {
		return nil
	}
	return amqp.Table{"x-expires": max(expiry.Milliseconds(), 1)}
}

// Rank implements collective.Communicator.
func (c *Comm) Rank() int { return c.cfg.Rank }

// Size implements collective.Communicator.
func (c *Comm) Size() int { return c.cfg.Size }

// Broadcast implements collective.Communicator.
func (c *Comm) Broadcast(ctx context.Context, root int, payload []byte) ([]byte, error) {
	if err := collective.ValidateRoot(root, c.cfg.Size); err != nil {
		return nil, collective.Fail(collective.OpBroadcast, c.cfg.Rank, err)
	}
	seq := c.bcastSeq
	c.bcastSeq++

	if c.cfg.Rank == root {
		if err := c.publish(ctx, c.cfg.BroadcastExchange(), "", seq, payload); err != nil {
			return nil, collective.Fail(collective.OpBroadcast, c.cfg.Rank, err)
		}
	}
	recv, err := c.receiver(c.cfg.BroadcastQueue(c.cfg.Rank))
	if err != nil {
		return nil, collective.Fail(collective.OpBroadcast, c.cfg.Rank, err)
	}
	env, err := c.bcastBox.Take(ctx, seq, recv)
	if err != nil {
		return nil, collective.Fail(collective.OpBroadcast, c.cfg.Rank, err)
	}
	if env.Rank != root {
		return nil, collective.Fail(collective.OpBroadcast, c.cfg.Rank,
			fmt.Errorf("broadcast %d came from rank %d, expected root %d", seq, env.Rank, root))
	}
	return env.Payload, nil
}

// Gather implements collective.Communicator.
func (c *Comm) Gather(ctx context.Context, root int, payload []byte) ([][]byte, error) {
	if err := collective.ValidateRoot(root, c.cfg.Size); err != nil {
		return nil, collective.Fail(collective.OpGather, c.cfg.Rank, err)
	}
	seq := c.gatherSeq
	c.gatherSeq++

	if c.cfg.Rank != root {
		err := c.publish(ctx, "", c.cfg.GatherQueue(root), seq, payload)
		return nil, collective.Fail(collective.OpGather, c.cfg.Rank, err)
	}
	recv, err := c.receiver(c.cfg.GatherQueue(root))
	if err != nil {
		return nil, collective.Fail(collective.OpGather, c.cfg.Rank, err)
	}
	out, err := collective.Collect(ctx, &c.gatherBox, seq, c.cfg.Size, root, payload, recv)
	if err != nil {
		return nil, collective.Fail(collective.OpGather, c.cfg.Rank, err)
	}
	return out, nil
}

func (c *Comm) publish(ctx context.Context, exchange, key string, seq uint64, payload []byte) error {
	msg := amqp.Publishing{
		ContentType: "application/octet-stream",
		MessageId:   uuid.NewString(),
		AppId:       appID,
		Timestamp:   time.Now(),
		Headers: amqp.Table{
			headerRank: int32(c.cfg.Rank),
			headerSeq:  int64(seq),
		},
		Body: payload,
	}
	if err := c.ch.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("amqp: publish to %q/%q: %w", exchange, key, err)
	}
	c.logger.Debug("published",
		logging.String("exchange", exchange), logging.String("key", key),
		logging.Int("seq", int(seq)), logging.Int("bytes", len(payload)))
	return nil
}

// receiver returns a RecvFunc over a consumer of queue, started on first use
// and kept until Close.
func (c *Comm) receiver(queue string) (collective.RecvFunc, error) {
	deliveries, ok := c.consumers[queue]
	if !ok {
		tag := fmt.Sprintf("%s-rank%d-%s", appID, c.cfg.Rank, uuid.NewString())
		d, err := c.ch.Consume(queue, tag, true, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("amqp: consume %s: %w", queue, err)
		}
		c.consumers[queue] = d
		deliveries = d
	}
	return func(ctx context.Context) (collective.Envelope, error) {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return collective.Envelope{}, collective.ErrClosed
			}
			return envelopeOf(d)
		case <-ctx.Done():
			return collective.Envelope{}, ctx.Err()
		}
	}, nil
}

func envelopeOf(d amqp.Delivery) (collective.Envelope, error) {
	rank, err := headerInt(d.Headers, headerRank)
	if err != nil {
		return collective.Envelope{}, err
	}
	seq, err := headerInt(d.Headers, headerSeq)
	if err != nil {
		return collective.Envelope{}, err
	}
	if seq < 0 {
		return collective.Envelope{}, fmt.Errorf("amqp: negative %s header", headerSeq)
	}
	return collective.Envelope{Seq: uint64(seq), Rank: int(rank), Payload: d.Body}, nil
}

var errMissingHeader = errors.New("amqp: missing or malformed header")

func headerInt(t amqp.Table, key string) (int64, error) {
	switch v := t[key].(type) {
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w %q", errMissingHeader, key)
	}
}

// Close deletes this rank's own queues and closes the channel and connection.
// Other ranks only publish into a rank's queues before that rank completes the
// matching collective, so deleting them at Close loses nothing.
func (c *Comm) Close() error {
	var errs []error
	for _, name := range []string{c.cfg.BroadcastQueue(c.cfg.Rank), c.cfg.GatherQueue(c.cfg.Rank)} {
		if _, err := c.ch.QueueDelete(name, false, false, false); err != nil {
			errs = append(errs, fmt.Errorf("amqp: delete queue %s: %w", name, err))
		}
	}
	if err := c.ch.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
