// Package engine assembles the matching core: it builds one shard per
// symbol, an ingress worker pool routing into them, and, when pinning is
// enabled, pins each to a dedicated CPU core.
package engine

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"matchfabric/domain"
	"matchfabric/fabric"
	"matchfabric/matching"
)

// SymbolSpec declares one symbol's book configuration.
type SymbolSpec struct {
	Name         string
	Algorithm    matching.Algorithm
	FIFOFraction float64 // hybrid only
}

// Options configures a Supervisor.
type Options struct {
	Symbols        []SymbolSpec
	IngressWorkers int
	IngressBuffer  int // ingress channel capacity
	ShardQueueSize int // per-shard bounded queue, power of 2
	// PinCPUs enables the core budget check and thread affinity. When
	// true the host must provide at least |symbols| + |workers| cores.
	// Disable for tests and undersized hosts.
	PinCPUs bool
	Sink    fabric.TradeSink
	Logger  *zap.Logger
}

// Defaults applied by New for zero-valued options.
const (
	DefaultIngressWorkers = 2
	DefaultIngressBuffer  = 4096
	DefaultShardQueueSize = 1024
)

// Supervisor owns the lifetime of the matching core's threads: shard
// workers and ingress workers. Start spawns them, each locked to an OS
// thread and, when PinCPUs is set, pinned to its own core; Stop closes the ingress channel,
// joins the workers, then closes the shard wakeups and joins the
// shards, in that order, so no event in flight is stranded.
type Supervisor struct {
	opts    Options
	logger  *zap.Logger
	ingress chan domain.Event
	shards  map[string]*fabric.Shard
	order   []string // symbol spawn order, fixes core assignment
	router  *fabric.Router

	wgWorkers sync.WaitGroup
	wgShards  sync.WaitGroup
}

// New validates opts, builds the books, shards and router, and checks
// the core budget. No threads run until Start.
func New(opts Options) (*Supervisor, error) {
	if len(opts.Symbols) == 0 {
		return nil, errors.New("engine: at least one symbol required")
	}
	if opts.IngressWorkers <= 0 {
		opts.IngressWorkers = DefaultIngressWorkers
	}
	if opts.IngressBuffer <= 0 {
		opts.IngressBuffer = DefaultIngressBuffer
	}
	if opts.ShardQueueSize <= 0 {
		opts.ShardQueueSize = DefaultShardQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if opts.PinCPUs {
		need := len(opts.Symbols) + opts.IngressWorkers
		if have := runtime.NumCPU(); have < need {
			return nil, fmt.Errorf("engine: need %d cores (%d shards + %d ingress workers), host has %d",
				need, len(opts.Symbols), opts.IngressWorkers, have)
		}
	}

	s := &Supervisor{
		opts:    opts,
		logger:  opts.Logger,
		ingress: make(chan domain.Event, opts.IngressBuffer),
		shards:  make(map[string]*fabric.Shard, len(opts.Symbols)),
	}

	for _, spec := range opts.Symbols {
		if _, dup := s.shards[spec.Name]; dup {
			return nil, fmt.Errorf("engine: duplicate symbol %q", spec.Name)
		}
		book, err := matching.NewBook(spec.Name, spec.Algorithm, spec.FIFOFraction)
		if err != nil {
			return nil, fmt.Errorf("engine: book for %q: %w", spec.Name, err)
		}
		s.shards[spec.Name] = fabric.NewShard(spec.Name, book, opts.ShardQueueSize, opts.Sink, opts.Logger)
		s.order = append(s.order, spec.Name)
	}

	s.router = fabric.NewRouter(s.ingress, s.shards, opts.Logger)
	return s, nil
}

// Ingress returns the shared submission channel. Producers may send
// from any goroutine; a non-blocking send with a full-channel fallback
// is the expected pattern at the boundary.
func (s *Supervisor) Ingress() chan<- domain.Event {
	return s.ingress
}

// Shard returns the shard owning symbol, or nil.
func (s *Supervisor) Shard(symbol string) *fabric.Shard {
	return s.shards[symbol]
}

// Symbols returns the configured symbol names in spawn order.
func (s *Supervisor) Symbols() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Start spawns one thread per shard and per ingress worker. Shards take
// cores [0, |symbols|), ingress workers the next |workers| cores. A pin
// failure is logged and the thread runs unpinned.
func (s *Supervisor) Start() {
	for i, symbol := range s.order {
		shard := s.shards[symbol]
		core := i
		s.wgShards.Add(1)
		go func() {
			defer s.wgShards.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			s.pin(core, "shard", shard.Symbol())
			shard.Run()
		}()
	}

	for w := 0; w < s.opts.IngressWorkers; w++ {
		core := len(s.order) + w
		worker := w
		s.wgWorkers.Add(1)
		go func() {
			defer s.wgWorkers.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			s.pin(core, "ingress", fmt.Sprintf("worker-%d", worker))
			s.router.RunWorker(worker)
		}()
	}

	s.logger.Info("engine started",
		zap.Int("shards", len(s.order)),
		zap.Int("ingress_workers", s.opts.IngressWorkers),
		zap.Bool("pinned", s.opts.PinCPUs))
}

// Stop drains and joins everything: the ingress channel closes first so
// the workers flush their last pushes, then the shard wakeups close.
func (s *Supervisor) Stop() {
	close(s.ingress)
	s.wgWorkers.Wait()

	// Workers are gone; one last wakeup per shard flushes anything they
	// pushed after the shard's final drain, then the close lands.
	for _, symbol := range s.order {
		s.shards[symbol].Wakeup()
	}
	for _, symbol := range s.order {
		s.shards[symbol].Close()
	}
	s.wgShards.Wait()

	s.logger.Info("engine stopped")
}

func (s *Supervisor) pin(core int, role, name string) {
	if !s.opts.PinCPUs {
		return
	}
	if err := pinThread(core); err != nil {
		s.logger.Warn("core pinning failed",
			zap.String("role", role),
			zap.String("name", name),
			zap.Int("core", core),
			zap.Error(err))
		return
	}
	s.logger.Info("thread pinned",
		zap.String("role", role),
		zap.String("name", name),
		zap.Int("core", core))
}
