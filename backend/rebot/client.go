package rebot

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// Client owns the TCP connection and the hello/version handshake, plus
// the heartbeat watchdog of spec §6: "the server sends a periodic
// heartbeat (no-op read); if any send/recv times out, the client
// transitions the backend to faulted."
type Client struct {
	mu            sync.Mutex
	conn          net.Conn
	timeout       time.Duration
	sessionKey    uint32
	negotiated    uint32
	onFault       func(error)
	stopHeartbeat chan struct{}
	heartbeatWg   sync.WaitGroup
}

// Dial opens addr, exchanges hello/welcome, and starts the heartbeat
// watchdog. onFault is invoked each time a send/recv times out or the
// connection otherwise fails, so it can run more than once per Dial.
func Dial(addr string, timeout time.Duration, onFault func(error)) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("rebot: dial %s: %w", addr, err)
	}
	c := &Client{conn: conn, timeout: timeout, onFault: onFault, stopHeartbeat: make(chan struct{})}
	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	c.heartbeatWg.Add(1)
	go c.watchHeartbeat()
	return c, nil
}

func (c *Client) handshake() error {
	hello := Header{Opcode: OpHello, LengthOrValue: ProtocolVersion}
	if err := c.sendHeader(hello); err != nil {
		return fmt.Errorf("rebot: hello: %w", err)
	}
	welcome, err := c.recvHeader()
	if err != nil {
		return fmt.Errorf("rebot: welcome: %w", err)
	}
	if welcome.Opcode != OpWelcome {
		return fmt.Errorf("rebot: expected welcome, got opcode %d", welcome.Opcode)
	}
	c.negotiated = welcome.LengthOrValue
	c.sessionKey = welcome.Address
	return nil
}

func (c *Client) sendHeader(h Header) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return writeFull(c.conn, h.encode())
}

// recvHeader reads one header, transparently discarding any
// OpHeartbeat frames interleaved by the server before the response
// the caller is actually waiting for.
func (c *Client) recvHeader() (Header, error) {
	for {
		c.conn.SetReadDeadline(time.Now().Add(c.timeout))
		buf, err := readFull(c.conn, wordSize*4)
		if err != nil {
			return Header{}, err
		}
		h, err := decodeHeader(buf)
		if err != nil {
			return Header{}, err
		}
		if h.Opcode == OpHeartbeat {
			continue
		}
		return h, nil
	}
}

// ReadWords issues an OpRead for length words at (bar, address) and
// returns the payload.
func (c *Client) ReadWords(bar, address uint32, length int) ([]uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sendHeader(Header{Opcode: OpRead, Address: address, LengthOrValue: uint32(length), Bar: bar}); err != nil {
		c.fault(err)
		return nil, err
	}
	resp, err := c.recvHeader()
	if err != nil {
		c.fault(err)
		return nil, err
	}
	if resp.Opcode != OpData {
		err := fmt.Errorf("rebot: expected data, got opcode %d", resp.Opcode)
		c.fault(err)
		return nil, err
	}
	c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	payload, err := readFull(c.conn, length*wordSize)
	if err != nil {
		c.fault(err)
		return nil, err
	}
	return decodeWords(payload)
}

// WriteWords issues an OpWrite of words at (bar, address) and waits
// for the server's ack.
func (c *Client) WriteWords(bar, address uint32, words []uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sendHeader(Header{Opcode: OpWrite, Address: address, LengthOrValue: uint32(len(words)), Bar: bar}); err != nil {
		c.fault(err)
		return err
	}
	if err := func() error {
		c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
		return writeFull(c.conn, encodeWords(words))
	}(); err != nil {
		c.fault(err)
		return err
	}
	resp, err := c.recvHeader()
	if err != nil {
		c.fault(err)
		return err
	}
	if resp.Opcode != OpAck {
		err := fmt.Errorf("rebot: expected ack, got opcode %d", resp.Opcode)
		c.fault(err)
		return err
	}
	return nil
}

// watchHeartbeat blocks reading frames between explicit ReadWords/
// WriteWords exchanges is not attempted here (those already hold
// c.mu); instead this goroutine only exists to notice a dead
// connection between requests by periodically nudging the deadline.
// Real heartbeat frames arriving mid-idle are drained by the next
// caller's recvHeader, which tolerates and skips OpHeartbeat frames.
func (c *Client) watchHeartbeat() {
	defer c.heartbeatWg.Done()
	ticker := time.NewTicker(c.timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopHeartbeat:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.conn.SetDeadline(time.Now().Add(c.timeout))
			c.mu.Unlock()
			if err != nil {
				c.fault(err)
				return
			}
		}
	}
}

func (c *Client) fault(err error) {
	if c.onFault != nil {
		c.onFault(err)
	}
}

// Close stops the heartbeat watchdog and closes the connection.
func (c *Client) Close() error {
	close(c.stopHeartbeat)
	c.heartbeatWg.Wait()
	return c.conn.Close()
}
