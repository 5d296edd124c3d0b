package amqpcomm

import (
	"context"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeBroker is an in-memory stand-in for a RabbitMQ vhost: named queues,
// fanout exchanges and the default exchange routing by queue name.
type fakeBroker struct {
	mu        sync.Mutex
	queues    map[string]chan amqp.Delivery
	args      map[string]amqp.Table
	bindings  map[string][]string
	consumed  map[string]bool
	published int
	failNext  error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		queues:   make(map[string]chan amqp.Delivery),
		args:     make(map[string]amqp.Table),
		bindings: make(map[string][]string),
		consumed: make(map[string]bool),
	}
}

func (b *fakeBroker) channel() *fakeChannel { return &fakeChannel{broker: b} }

func (b *fakeBroker) queueNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.queues))
	for name := range b.queues {
		names = append(names, name)
	}
	return names
}

func (b *fakeBroker) queueArgs(name string) amqp.Table {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.args[name]
}

// inject delivers a raw message straight into a queue.
func (b *fakeBroker) inject(queue string, d amqp.Delivery) {
	b.mu.Lock()
	q := b.queues[queue]
	b.mu.Unlock()
	q <- d
}

type fakeChannel struct {
	broker *fakeBroker
	closed bool
}

var errUnknownQueue = errors.New("fake: unknown queue")

func (c *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	if kind != amqp.ExchangeFanout {
		return errors.New("fake: only fanout exchanges are supported")
	}
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	if _, ok := c.broker.bindings[name]; !ok {
		c.broker.bindings[name] = nil
	}
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	if _, ok := c.broker.queues[name]; !ok {
		c.broker.queues[name] = make(chan amqp.Delivery, 1024)
	}
	c.broker.args[name] = args
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) QueueBind(name, _, exchange string, _ bool, _ amqp.Table) error {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	for _, bound := range c.broker.bindings[exchange] {
		if bound == name {
			return nil
		}
	}
	c.broker.bindings[exchange] = append(c.broker.bindings[exchange], name)
	return nil
}

func (c *fakeChannel) QueueDelete(name string, _, _, _ bool) (int, error) {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	q, ok := c.broker.queues[name]
	if !ok {
		return 0, nil
	}
	delete(c.broker.queues, name)
	for ex, bound := range c.broker.bindings {
		kept := bound[:0]
		for _, b := range bound {
			if b != name {
				kept = append(kept, b)
			}
		}
		c.broker.bindings[ex] = kept
	}
	return len(q), nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.broker.mu.Lock()
	if err := c.broker.failNext; err != nil {
		c.broker.failNext = nil
		c.broker.mu.Unlock()
		return err
	}
	var targets []chan amqp.Delivery
	if exchange == "" {
		q, ok := c.broker.queues[key]
		if !ok {
			c.broker.mu.Unlock()
			return errUnknownQueue
		}
		targets = append(targets, q)
	} else {
		for _, name := range c.broker.bindings[exchange] {
			targets = append(targets, c.broker.queues[name])
		}
	}
	c.broker.published++
	c.broker.mu.Unlock()

	for _, q := range targets {
		body := append([]byte(nil), msg.Body...)
		q <- amqp.Delivery{
			Headers:     msg.Headers,
			ContentType: msg.ContentType,
			MessageId:   msg.MessageId,
			AppId:       msg.AppId,
			Exchange:    exchange,
			RoutingKey:  key,
			Body:        body,
		}
	}
	return nil
}

func (c *fakeChannel) Consume(queue, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	q, ok := c.broker.queues[queue]
	if !ok {
		return nil, errUnknownQueue
	}
	if c.broker.consumed[queue] {
		return nil, errors.New("fake: queue already has a consumer")
	}
	c.broker.consumed[queue] = true
	return q, nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}
