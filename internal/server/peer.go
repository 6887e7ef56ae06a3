package server

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/eternalApril/redismock/internal/pubsub"
	"github.com/eternalApril/redismock/internal/resp"
	"github.com/google/uuid"
)

const (
	// outboundQueueSize is how many replies and published frames may wait for the socket
	outboundQueueSize = 256

	// writeTimeout bounds a single socket write, so a stalled client cannot pin the write loop
	writeTimeout = 5 * time.Second
)

var (
	ErrPeerClosed   = errors.New("peer closed")
	ErrSlowConsumer = errors.New("outbound queue full, client is not reading")
)

// Peer represents a connected client.
// Reads happen on the connection goroutine; every write goes through a bounded queue
// drained by the peer's own write loop, so no caller ever waits on the network.
// A Peer is also the pub/sub subscriber for its connection
type Peer struct {
	id         string
	conn       net.Conn
	reader     *resp.Decoder
	writer     *resp.Encoder // owned by writeLoop
	membership *pubsub.Membership
	out        chan resp.Value
	closeCh    chan struct{}
	closeOnce  sync.Once
	writeDone  chan struct{}
}

// NewPeer initializes a new client peer from a network connection and starts its write loop
func NewPeer(conn net.Conn) *Peer {
	p := &Peer{
		id:         uuid.NewString(),
		conn:       conn,
		reader:     resp.NewDecoder(conn),
		writer:     resp.NewEncoder(conn),
		membership: pubsub.NewMembership(),
		out:        make(chan resp.Value, outboundQueueSize),
		closeCh:    make(chan struct{}),
		writeDone:  make(chan struct{}),
	}
	go p.writeLoop()
	return p
}

// ID returns the unique identifier of the connection
func (p *Peer) ID() string {
	return p.id
}

// RemoteAddr returns the client address
func (p *Peer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

// Write queues a reply to a command of this connection. It waits for room in the queue,
// which only ever holds up the connection that is not reading its own replies
func (p *Peer) Write(v resp.Value) error {
	select {
	case <-p.closeCh:
		return ErrPeerClosed
	default:
	}

	select {
	case p.out <- v:
		return nil
	case <-p.closeCh:
		return ErrPeerClosed
	}
}

// Send queues a published frame without ever waiting. It is called from other connections
// while they hold the dispatch lock; a subscriber whose queue is full is disconnected
func (p *Peer) Send(v resp.Value) error {
	select {
	case <-p.closeCh:
		return ErrPeerClosed
	default:
	}

	select {
	case p.out <- v:
		return nil
	default:
		p.Abort()
		return ErrSlowConsumer
	}
}

// Membership returns the channels this peer is subscribed to
func (p *Peer) Membership() *pubsub.Membership {
	return p.membership
}

// ReadCommand reads and decodes the next RESP value from the client's input stream
func (p *Peer) ReadCommand() (resp.Value, error) {
	return p.reader.Read()
}

// Close stops accepting writes, lets the write loop send whatever is still queued
// and closes the connection
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		close(p.closeCh)
	})
	<-p.writeDone
	return nil
}

// Abort drops the connection immediately, discarding queued output
func (p *Peer) Abort() {
	p.closeOnce.Do(func() {
		close(p.closeCh)
	})
	p.conn.Close() //nolint:errcheck
}

// Interrupt makes a pending or next read fail so the connection loop exits after the current command
func (p *Peer) Interrupt() error {
	return p.conn.SetReadDeadline(time.Now())
}

// writeLoop encodes queued values and flushes whenever the queue runs dry,
// so pipelined replies leave in batches
func (p *Peer) writeLoop() {
	defer close(p.writeDone)
	defer p.conn.Close() //nolint:errcheck

	for {
		select {
		case v := <-p.out:
			if err := p.writeValue(v); err != nil {
				p.Abort()
				return
			}

		case <-p.closeCh:
			for {
				select {
				case v := <-p.out:
					if err := p.writeValue(v); err != nil {
						return
					}
				default:
					p.flush() //nolint:errcheck
					return
				}
			}
		}
	}
}

func (p *Peer) writeValue(v resp.Value) error {
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	if err := p.writer.Write(v); err != nil {
		return err
	}
	if len(p.out) == 0 {
		return p.writer.Flush()
	}
	return nil
}

func (p *Peer) flush() error {
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return p.writer.Flush()
}
