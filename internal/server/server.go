package server

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/eternalApril/redismock/internal/config"
	"github.com/eternalApril/redismock/internal/resp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server accepts TCP connections and feeds their requests into the Engine
type Server struct {
	engine   *Engine
	stats    *Stats
	cfg      *config.Config
	listener net.Listener
	peers    map[*Peer]struct{}
	closing  bool
	mu       sync.Mutex // protects peers and closing
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// New creates a Server. stats must be the same instance the engine reads from
func New(engine *Engine, stats *Stats, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		engine: engine,
		stats:  stats,
		cfg:    cfg,
		peers:  make(map[*Peer]struct{}),
		logger: logger,
	}
}

// Listen binds the configured address
func (s *Server) Listen() error {
	address := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.listener = listener

	s.logger.Info("listening on", zap.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address. Valid after Listen
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled, then stops accepting, lets every
// connection finish its current command and waits for them up to the shutdown timeout
func (s *Server) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	acceptDone := make(chan struct{})

	g.Go(func() error {
		defer close(acceptDone)
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				s.logger.Error("accept error", zap.Error(err))
				continue
			}

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleConnection(conn)
			}()
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down listener")

		s.listener.Close() //nolint:errcheck
		<-acceptDone
		s.interruptPeers()
		s.waitForPeers()
		return nil
	})

	return g.Wait()
}

func (s *Server) interruptPeers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closing = true
	for peer := range s.peers {
		peer.Interrupt() //nolint:errcheck
	}
}

func (s *Server) waitForPeers() {
	timeout := s.cfg.Shutdown.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("all connections closed gracefully")
	case <-time.After(timeout):
		s.logger.Warn("shutdown timed out, forcing close", zap.Duration("timeout", timeout))
		s.mu.Lock()
		for peer := range s.peers {
			peer.Abort()
		}
		s.mu.Unlock()
	}
}

func (s *Server) track(p *Peer) {
	s.mu.Lock()
	s.peers[p] = struct{}{}
	if s.closing {
		p.Interrupt() //nolint:errcheck
	}
	s.mu.Unlock()
}

func (s *Server) untrack(p *Peer) {
	s.mu.Lock()
	delete(s.peers, p)
	s.mu.Unlock()
}

// handleConnection handles a connection for a single user
func (s *Server) handleConnection(conn net.Conn) {
	peer := NewPeer(conn)
	log := s.logger.With(zap.String("client", peer.ID()))

	if log.Core().Enabled(zap.DebugLevel) {
		log.Debug("client connected", zap.String("addr", peer.RemoteAddr()))
	}

	s.track(peer)
	s.stats.clientConnected()

	defer func() {
		s.engine.Disconnect(peer)
		s.untrack(peer)
		s.stats.clientDisconnected()
		peer.Close() //nolint:errcheck
		// log connection close
		if log.Core().Enabled(zap.DebugLevel) {
			log.Debug("client disconnected", zap.String("addr", peer.RemoteAddr()))
		}
	}()

	for {
		cmdValue, err := peer.ReadCommand()
		if err != nil {
			if isProtocolError(err) {
				peer.Write(protocolError(err)) //nolint:errcheck
			} else if !isClosedError(err) {
				log.Warn("read command failed", zap.Error(err))
			}
			return
		}

		if cmdValue.Type != resp.TypeArray {
			if peer.Write(resp.MakeError("ERR Protocol error: expected array of bulk strings")) != nil {
				return
			}
			continue
		}

		if len(cmdValue.Array) == 0 {
			continue
		}

		s.stats.commandProcessed()

		if strings.EqualFold(cmdValue.Array[0].Text(), "QUIT") {
			peer.Write(resp.MakeOK()) //nolint:errcheck
			return
		}

		result := s.engine.Dispatch(peer, cmdValue.Array)

		if err = peer.Write(result); err != nil {
			if !errors.Is(err, ErrPeerClosed) {
				log.Error("error writing response", zap.Error(err))
			}
			return
		}
	}
}

// protocolError turns a decode failure into the reply sent before the connection is dropped
func protocolError(err error) resp.Value {
	detail := strings.TrimPrefix(err.Error(), resp.ErrProtocol.Error()+": ")
	return resp.MakeError("ERR Protocol error: " + detail)
}

func isProtocolError(err error) bool {
	return errors.Is(err, resp.ErrProtocol) || errors.Is(err, resp.ErrInvalidEnding)
}

// isClosedError reports errors that simply mean the client or the server ended the connection
func isClosedError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}
