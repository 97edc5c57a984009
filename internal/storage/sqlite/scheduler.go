package sqlite

import (
	"sync"
	"time"

	"lt-go/internal/lt"
)

const (
	relayInitialBackoff = time.Second
	relayMaxBackoff     = time.Minute
)

// relayScheduler runs the outbox relay on its own goroutine. Schedule is an
// idempotent enqueue: the kick channel is buffered to one, so rapid event
// appends coalesce into at most one pending relay run. Failed runs are
// retried with exponential backoff until they succeed or Stop is called.
type relayScheduler struct {
	run    func() error
	logger lt.Logger

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func newRelayScheduler(run func() error, logger lt.Logger) *relayScheduler {
	s := &relayScheduler{
		run:    run,
		logger: logger,
		kick:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.loop()
	return s
}

// Schedule requests a relay run. Safe to call concurrently and while a run
// is in flight; a kick that cannot be buffered is already covered by the
// one pending.
func (s *relayScheduler) Schedule() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Stop shuts the scheduler down and waits for the loop to exit. Any backlog
// left in the outbox is picked up by the next process.
func (s *relayScheduler) Stop() {
	s.once.Do(func() {
		close(s.stop)
	})
	<-s.done
}

func (s *relayScheduler) loop() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		case <-s.kick:
		}

		backoff := relayInitialBackoff
		for {
			err := s.run()
			if err == nil {
				break
			}
			s.logger.Error("outbox relay failed; will retry", "plugin", PluginID, "backoff", backoff, "error", err)

			select {
			case <-s.stop:
				return
			case <-time.After(backoff):
			}
			if backoff < relayMaxBackoff {
				backoff *= 2
			}
		}
	}
}
