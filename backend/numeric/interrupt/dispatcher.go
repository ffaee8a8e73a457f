package interrupt

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/version"
)

// Update is one pushed value delivered to a subscriber's queue: either
// a payload or a poisoning runtime error (spec §4.3's setException
// poisoning).
type Update struct {
	Version version.Number
	Err     error
}

// subscriber is one accessor's pending-update queue.
type subscriber struct {
	id    string
	queue chan Update
}

// Node is one InterruptDispatcher tree node, keyed by its path segment
// (e.g. the "4" in "[0, 4]"). It owns its subscribers, its children,
// and (if hardware-backed) its handshake configuration and register
// writer.
type Node struct {
	mu          sync.Mutex
	config      NodeConfig
	writer      RegisterWriter
	subscribers map[string]*subscriber
	children    map[int]*Node
}

// NewNode constructs a node. writer may be nil for a purely logical
// (non-hardware) intermediate node.
func NewNode(config NodeConfig, writer RegisterWriter) (*Node, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Node{
		config:      config,
		writer:      writer,
		subscribers: make(map[string]*subscriber),
		children:    make(map[int]*Node),
	}, nil
}

// Child returns (creating if absent) the sub-dispatcher at index i,
// for deeper interrupt-path components (spec §3's "[i0, i1, …]").
func (n *Node) Child(i int, config NodeConfig, writer RegisterWriter) (*Node, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, ok := n.children[i]; ok {
		return c, nil
	}
	c, err := NewNode(config, writer)
	if err != nil {
		return nil, err
	}
	n.children[i] = c
	return c, nil
}

// Subscribe registers id's queue at this node and returns it. Queue
// capacity is bounded (spec §9's "bounded multi-producer/single-consumer
// channel"); a full queue drops the oldest update to make room, and
// the drop is not reported to the subscriber.
func (n *Node) Subscribe(id string, capacity int) <-chan Update {
	n.mu.Lock()
	defer n.mu.Unlock()
	if s, ok := n.subscribers[id]; ok {
		return s.queue
	}
	s := &subscriber{id: id, queue: make(chan Update, capacity)}
	n.subscribers[id] = s
	return s.queue
}

// Unsubscribe removes and closes id's queue. It writes nothing to
// hardware, and Activate writes enable bits only for nodes that have
// subscribers and never writes CIE or clears a master enable, so an
// enable bit set for a subscriber stays set after it unsubscribes.
func (n *Node) Unsubscribe(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if s, ok := n.subscribers[id]; ok {
		close(s.queue)
		delete(n.subscribers, id)
	}
}

// Activate walks this node and its children, and for each node with at
// least one subscriber writes the enable mask into hardware and
// delivers the current value once as the initial value (spec §4.3).
// Sibling children are activated concurrently via an errgroup.
func (n *Node) Activate(ctx context.Context, initial func(node *Node) (version.Number, error)) error {
	n.mu.Lock()
	hasSubscribers := len(n.subscribers) > 0
	writer := n.writer
	config := n.config
	children := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		children = append(children, c)
	}
	n.mu.Unlock()

	if hasSubscribers {
		if writer != nil {
			if err := writeEnable(writer, config); err != nil {
				return err
			}
		}
		if initial != nil {
			v, err := initial(n)
			if err != nil {
				return err
			}
			n.broadcast(Update{Version: v})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, child := range children {
		child := child
		g.Go(func() error {
			return child.Activate(gctx, initial)
		})
	}
	return g.Wait()
}

func writeEnable(writer RegisterWriter, config NodeConfig) error {
	mask := uint32(1) << config.Bit
	switch config.Enable {
	case EnableSIECIE:
		return writer.WriteRegister(config.Registers.SIE, mask)
	case EnableMasterBit:
		return writer.WriteRegister(config.Registers.MER, mask)
	case EnableNone:
		return nil
	default:
		return deverr.Logicf("", "unknown enable variant %v", config.Enable)
	}
}

// Trigger delivers one hardware interrupt at this node: it writes the
// configured acknowledge (no status register is read here) and pushes
// a fresh update to every subscriber.
func (n *Node) Trigger(v version.Number) error {
	n.mu.Lock()
	writer := n.writer
	config := n.config
	n.mu.Unlock()

	if writer != nil {
		if err := acknowledge(writer, config); err != nil {
			return err
		}
	}
	n.broadcast(Update{Version: v})
	return nil
}

func acknowledge(writer RegisterWriter, config NodeConfig) error {
	mask := uint32(1) << config.Bit
	switch config.Ack {
	case AckISR:
		return writer.WriteRegister(config.Registers.ISR, mask)
	case AckIAR:
		return writer.WriteRegister(config.Registers.IAR, mask)
	case AckICR:
		return writer.WriteRegister(config.Registers.ICR, mask)
	case AckNone:
		return nil
	default:
		return deverr.Logicf("", "unknown acknowledge variant %v", config.Ack)
	}
}

// broadcast pushes update to every subscriber, dropping the oldest
// pending entry on a full queue rather than blocking the trigger.
func (n *Node) broadcast(update Update) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.subscribers {
		select {
		case s.queue <- update:
		default:
			select {
			case <-s.queue:
			default:
			}
			s.queue <- update
		}
	}
}

// Poison pushes a runtime error to every subscriber at this node and
// all descendants, per spec §4.3's setException poisoning, and spec
// §9's "weak reference plus a registration token" — the dispatcher
// does not hold accessors, only their queues.
func (n *Node) Poison(msg string) {
	n.mu.Lock()
	subs := make([]*subscriber, 0, len(n.subscribers))
	for _, s := range n.subscribers {
		subs = append(subs, s)
	}
	children := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		children = append(children, c)
	}
	n.mu.Unlock()

	err := fmt.Errorf("interrupt dispatcher poisoned: %s", msg)
	for _, s := range subs {
		select {
		case s.queue <- Update{Err: deverr.Wrap("", err, "async poisoned")}:
		default:
		}
	}
	for _, c := range children {
		c.Poison(msg)
	}
}
