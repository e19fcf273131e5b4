// Package checkpoint implements the barrier/checkpoint protocol that
// drives epoch alignment across the streaming executor's operator
// graph: a BarrierManager tracks which actors still owe a completion
// for the current epoch, and a BarrierService drives the epoch counter
// and blocks a caller until the in-flight epoch fully drains.
package checkpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/opentracing/opentracing-go"
)

// ActorID identifies one executor operator registered with the
// barrier manager, matching the original's actor_id: u32.
type ActorID uint32

// Epoch is a monotonically increasing checkpoint generation.
type Epoch uint64

// Barrier is the control-plane message that flows alongside data
// chunks, delimiting one checkpoint epoch from the next.
type Barrier struct {
	Epoch uint64
}

// BarrierManager fans a Barrier out to every registered actor's
// control channel and tracks, per epoch, which actors still owe a
// completion notification — a direct port of checkpoint/barrier_manager.rs.
type BarrierManager struct {
	mu sync.Mutex

	senders   map[ActorID][]chan Barrier
	allActors map[ActorID]struct{}

	epochRemaining map[Epoch]map[ActorID]struct{}
	epochComplete  map[Epoch]chan struct{}
}

func NewBarrierManager() *BarrierManager {
	return &BarrierManager{
		senders:        make(map[ActorID][]chan Barrier),
		allActors:      make(map[ActorID]struct{}),
		epochRemaining: make(map[Epoch]map[ActorID]struct{}),
		epochComplete:  make(map[Epoch]chan struct{}),
	}
}

// RegisterActor enrolls id as an actor every future barrier must wait
// on for completion.
func (m *BarrierManager) RegisterActor(id ActorID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allActors[id] = struct{}{}
}

// RegisterSender attaches a control channel that actor id's executor
// reads barriers from; an actor may register more than one (fan-in
// operators hold one per input).
func (m *BarrierManager) RegisterSender(id ActorID) <-chan Barrier {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Barrier, 16)
	m.senders[id] = append(m.senders[id], ch)
	return ch
}

// SendBarrier fans barrier out to every registered sender channel,
// skipping a full channel instead of blocking (the original tolerates a closed
// mpsc receiver the same way — a crashed or already-finished actor
// must not block the rest of the epoch), then seeds the epoch's
// remaining-actor set from every currently registered actor.
func (m *BarrierManager) SendBarrier(epoch Epoch, barrier Barrier) {
	m.mu.Lock()
	for _, chans := range m.senders {
		for _, ch := range chans {
			select {
			case ch <- barrier:
			default:
			}
		}
	}
	remaining := make(map[ActorID]struct{}, len(m.allActors))
	for id := range m.allActors {
		remaining[id] = struct{}{}
	}
	m.epochRemaining[epoch] = remaining
	m.epochComplete[epoch] = make(chan struct{})
	m.mu.Unlock()
}

// NotifyBarrierComplete records that actor id has finished processing
// barrier epoch. Panics on an unknown epoch, matching the original's
// hard invariant (a completion for an epoch no one registered a
// barrier for is a wiring bug, not a recoverable error).
func (m *BarrierManager) NotifyBarrierComplete(epoch Epoch, id ActorID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	remaining, ok := m.epochRemaining[epoch]
	if !ok {
		panic(fmt.Sprintf("checkpoint: NotifyBarrierComplete for unknown epoch %d", epoch))
	}
	delete(remaining, id)
	if len(remaining) == 0 {
		close(m.epochComplete[epoch])
	}
}

// awaitEpoch blocks until epoch's remaining-actor set has drained or
// ctx is done, then removes the bookkeeping for it. A stuck fan-out
// (an operator returning on ctx.Done() before forwarding a barrier
// downstream) must not wedge this call forever, so cancellation is a
// second, equally valid way out.
func (m *BarrierManager) awaitEpoch(ctx context.Context, epoch Epoch) error {
	m.mu.Lock()
	ch, ok := m.epochComplete[epoch]
	m.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("checkpoint: awaitEpoch for unknown epoch %d", epoch))
	}
	select {
	case <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.mu.Lock()
	delete(m.epochComplete, epoch)
	delete(m.epochRemaining, epoch)
	m.mu.Unlock()
	return nil
}

// BarrierService owns the epoch counter and drives one
// send-then-collect round trip per checkpoint tick — the Go analogue
// of BarrierService{barrier_manager, current_epoch}.
type BarrierService struct {
	manager      *BarrierManager
	mu           sync.Mutex
	currentEpoch Epoch
}

func NewBarrierService(m *BarrierManager) *BarrierService {
	return &BarrierService{manager: m}
}

// SendBarrier increments the epoch counter and fans a new barrier out,
// returning the epoch so the caller can later CollectBarrier it.
func (s *BarrierService) SendBarrier() Epoch {
	s.mu.Lock()
	s.currentEpoch++
	epoch := s.currentEpoch
	s.mu.Unlock()

	span := opentracing.StartSpan(fmt.Sprintf("checkpoint.epoch.%d", epoch))
	defer span.Finish()
	s.manager.SendBarrier(epoch, Barrier{Epoch: uint64(epoch)})
	return epoch
}

// CollectBarrier blocks until the given epoch's barrier has been
// acknowledged by every actor, or ctx is done — whichever comes first.
func (s *BarrierService) CollectBarrier(ctx context.Context, epoch Epoch) error {
	return s.manager.awaitEpoch(ctx, epoch)
}
