// Package server реализует движок соединений: приём TCP-соединений,
// чтение и сборку одного HTTP-запроса, диспетчеризацию через цепочку
// middleware и роутер, сериализацию и запись ответа.
//
// Модель строго последовательная: одна горутина на соединение, один
// запрос на соединение, соединение закрывается после ответа.
package server

import (
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/paxren/webserver/internal/audit"
	"github.com/paxren/webserver/internal/metrics"
	"github.com/paxren/webserver/internal/middleware"
	"github.com/paxren/webserver/internal/router"
)

// Options — параметры движка. Нулевые значения заменяются значениями
// по умолчанию в NewServer.
type Options struct {
	Addr string

	// Backlog ограничивает число одновременно обрабатываемых
	// соединений: ядро Go не даёт управлять kernel backlog напрямую,
	// поэтому значение работает как семафор на горутины соединений.
	Backlog int

	InitialBufferSize int
	MaxHeaderSize     int
	MaxBodySize       int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

const (
	defaultBacklog       = 128
	defaultInitialBuffer = 1024
	defaultMaxHeaderSize = 8 << 10
	defaultMaxBodySize   = 1 << 20
	defaultTimeout       = 5 * time.Second
)

// Server владеет листенером и раздаёт соединения горутинам. Роутер и
// цепочка middleware наполняются до запуска и далее только читаются.
type Server struct {
	opts      Options
	router    *router.Router
	chain     *middleware.Chain
	agg       *metrics.Aggregator
	transport Transport
	observers []audit.Observer
	sugar     *zap.SugaredLogger

	sem chan struct{}

	mu sync.Mutex
	ln net.Listener
}

// NewServer собирает движок. Все сервисы передаются явно: движок не
// держит никакого глобального состояния.
func NewServer(opts Options, r *router.Router, chain *middleware.Chain, agg *metrics.Aggregator, transport Transport, sugar *zap.SugaredLogger) *Server {
	if opts.Backlog <= 0 {
		opts.Backlog = defaultBacklog
	}
	if opts.InitialBufferSize <= 0 {
		opts.InitialBufferSize = defaultInitialBuffer
	}
	if opts.MaxHeaderSize <= 0 {
		opts.MaxHeaderSize = defaultMaxHeaderSize
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxBodySize
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultTimeout
	}
	if transport == nil {
		transport = PlainTransport{}
	}

	return &Server{
		opts:      opts,
		router:    r,
		chain:     chain,
		agg:       agg,
		transport: transport,
		sugar:     sugar,
		sem:       make(chan struct{}, opts.Backlog),
	}
}

// AddObserver подключает наблюдателя аудита. Вызывается до запуска.
func (s *Server) AddObserver(o audit.Observer) {
	s.observers = append(s.observers, o)
}

// ListenAndServe открывает листенер на настроенном адресе и обслуживает
// его до закрытия сервера.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve обслуживает готовый листенер (в тестах — на порту 0).
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.sugar.Errorw("accept failed", "error", err)
			continue
		}

		s.sem <- struct{}{}
		wrapped, err := s.transport.Wrap(conn)
		if err != nil {
			s.sugar.Errorw("transport wrap failed", "error", err)
			conn.Close()
			<-s.sem
			continue
		}
		go s.handleConn(wrapped)
	}
}

// Addr возвращает фактический адрес листенера.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return s.opts.Addr
	}
	return s.ln.Addr().String()
}

// Close закрывает листенер. Уже принятые соединения дорабатывают.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
