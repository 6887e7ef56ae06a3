package server

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/eternalApril/redismock/internal/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeer_WriteKeepsOrderAndCloseFlushes(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close() //nolint:errcheck

	p := NewPeer(serverSide)
	dec := resp.NewDecoder(clientSide)

	require.NoError(t, p.Write(resp.MakeSimpleString("PONG")))
	require.NoError(t, p.Write(resp.MakeInteger(7)))
	require.NoError(t, p.Write(resp.MakeOK()))

	closed := make(chan struct{})
	go func() {
		p.Close() //nolint:errcheck
		close(closed)
	}()

	v, err := dec.Read()
	require.NoError(t, err)
	assert.Equal(t, "PONG", v.Text())

	v, err = dec.Read()
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Integer)

	v, err = dec.Read()
	require.NoError(t, err)
	assert.Equal(t, "OK", v.Text())

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	_, err = dec.Read()
	assert.Error(t, err, "connection is closed once the queue is drained")
	assert.ErrorIs(t, p.Write(resp.MakeOK()), ErrPeerClosed)
}

func TestPeer_SendDropsStalledClient(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close() //nolint:errcheck

	// nobody reads clientSide, so the first socket write blocks forever
	p := NewPeer(serverSide)
	frame := resp.MakeBulkArray([]string{"message", "c", "payload"})

	start := time.Now()
	var sendErr error
	for i := 0; i < outboundQueueSize*4; i++ {
		if sendErr = p.Send(frame); sendErr != nil {
			break
		}
	}

	assert.Less(t, time.Since(start), time.Second, "Send must not wait on the socket")
	require.Error(t, sendErr)
	assert.True(t, errors.Is(sendErr, ErrSlowConsumer), "got %v", sendErr)

	assert.ErrorIs(t, p.Send(frame), ErrPeerClosed)
	assert.ErrorIs(t, p.Write(frame), ErrPeerClosed)

	done := make(chan struct{})
	go func() {
		p.Close() //nolint:errcheck
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("write loop did not stop after the peer was dropped")
	}
}
