package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/usbwatch/usbwatch-core/internal/usb"
)

// defaultPollInterval is used when a poller is configured with no interval.
const defaultPollInterval = time.Second

// SnapshotFunc enumerates the currently attached devices, keyed by a
// per-attachment stable identifier.
type SnapshotFunc func() (map[string]usb.Descriptor, error)

// Poller drives a SnapshotFunc on a fixed interval and feeds the snapshot
// differences to the sink. The concrete backends (gousbpoll, hidpoll) embed
// it and supply only their enumeration function.
type Poller struct {
	name     string
	interval time.Duration
	snapshot SnapshotFunc
	logger   Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller. interval <= 0 selects the default.
func NewPoller(name string, interval time.Duration, snapshot SnapshotFunc, logger Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Poller{
		name:     name,
		interval: interval,
		snapshot: snapshot,
		logger:   logger,
	}
}

// Name identifies the poller in logs and the health endpoint.
func (p *Poller) Name() string { return p.name }

// HasHotplug reports true: polling backends always deliver transitions.
func (p *Poller) HasHotplug() bool { return true }

// Start performs the initial enumeration synchronously, so devices present
// at startup are attached before Start returns, then polls in the
// background until ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context, sink Sink) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		return fmt.Errorf("backend %s: already started", p.name)
	}

	differ := NewDiffer(sink)

	present, err := p.snapshot()
	if err != nil {
		return fmt.Errorf("backend %s: initial enumeration: %w", p.name, err)
	}
	differ.Apply(present)
	p.logger.Info("backend started", "backend", p.name, "devices", differ.Len())

	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(pollCtx, differ)

	return nil
}

// run is the polling loop. Enumeration failures are logged and the previous
// snapshot kept; a flapping bus must not fan out spurious departures.
func (p *Poller) run(ctx context.Context, differ *Differ) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			present, err := p.snapshot()
			if err != nil {
				p.logger.Warn("enumeration failed, keeping previous snapshot",
					"backend", p.name, "error", err)
				continue
			}
			differ.Apply(present)
		}
	}
}

// Stop halts polling and waits for the loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info("backend stopped", "backend", p.name)
}
