// Package server exposes the engine over a newline-delimited text protocol.
// Each connection is handled by its own goroutine; all connections share one
// concurrency manager and one index manager.
package server

import (
	"context"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/concurrency"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/indexmanager"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/storage/index"
)

var log = logrus.WithField("component", "server")

// Server accepts client connections and runs the command protocol over them.
type Server struct {
	listen  string
	control *concurrency.Manager
	indexes *indexmanager.Manager

	mu       sync.Mutex
	lis      net.Listener
	keyTypes map[string]indexmanager.KeyType
}

// New builds a server listening on listen once Serve is called.
func New(listen string, control *concurrency.Manager, indexes *indexmanager.Manager) *Server {
	return &Server{
		listen:   listen,
		control:  control,
		indexes:  indexes,
		keyTypes: make(map[string]indexmanager.KeyType),
	}
}

// Serve listens and handles connections until the context is canceled. It
// returns nil on a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listen)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.lis = lis
	s.mu.Unlock()

	log.WithField("addr", lis.Addr().String()).Info("listening")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return lis.Close()
	})

	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				_ = g.Wait()
				return nil
			}
			return err
		}
		g.Go(func() error {
			s.handle(conn)
			return nil
		})
	}
}

// Addr returns the bound address, or nil before Serve has listened.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	log.WithField("remote", conn.RemoteAddr().String()).Debug("client connected")
	newSession(conn, s).run()
}

// keyTypeFor looks up the key domain recorded for an index by CREATE or OPEN.
func (s *Server) keyTypeFor(desc index.Descriptor) (indexmanager.KeyType, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keyType, ok := s.keyTypes[desc.String()]
	return keyType, ok
}

func (s *Server) rememberKeyType(desc index.Descriptor, keyType indexmanager.KeyType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyTypes[desc.String()] = keyType
}

func (s *Server) forgetKeyType(desc index.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keyTypes, desc.String())
}
