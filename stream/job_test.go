package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamql/streamql/checkpoint"
	"github.com/streamql/streamql/sql/array"
)

func TestJobRunWithoutBarrierServiceFinishesOnChannelClose(t *testing.T) {
	require := require.New(t)
	run := func(ctx context.Context) <-chan Result {
		out := make(chan Result, 1)
		out <- Result{Msg: ChunkMessage(array.NewChunk(nil))}
		close(out)
		return out
	}
	job := Run(context.Background(), run, nil, time.Second)
	require.NoError(job.Wait())
}

func TestJobRunSurfacesExecutorError(t *testing.T) {
	run := func(ctx context.Context) <-chan Result {
		out := make(chan Result, 1)
		out <- Result{Err: errors.New("boom")}
		close(out)
		return out
	}
	job := Run(context.Background(), run, nil, time.Second)
	require.Error(t, job.Wait())
}

func TestJobStopCancelsLongRunningExecutor(t *testing.T) {
	require := require.New(t)
	started := make(chan struct{})
	run := func(ctx context.Context) <-chan Result {
		out := make(chan Result)
		go func() {
			defer close(out)
			close(started)
			<-ctx.Done()
		}()
		return out
	}
	job := Run(context.Background(), run, nil, time.Second)
	<-started
	require.NoError(job.Stop())
}

// fakeActor mimics a real scan operator acknowledging every barrier it
// receives, the way wrapExecutor does in sql/rowexec — needed so the
// checkpoint ticker's CollectBarrier calls don't block forever.
func fakeActor(m *checkpoint.BarrierManager, id checkpoint.ActorID) {
	m.RegisterActor(id)
	ch := m.RegisterSender(id)
	go func() {
		for b := range ch {
			m.NotifyBarrierComplete(checkpoint.Epoch(b.Epoch), id)
		}
	}()
}

func TestJobTicksCheckpointsWhenServiceProvided(t *testing.T) {
	require := require.New(t)
	manager := checkpoint.NewBarrierManager()
	fakeActor(manager, 1)
	svc := checkpoint.NewBarrierService(manager)

	started := make(chan struct{})
	run := func(ctx context.Context) <-chan Result {
		out := make(chan Result)
		go func() {
			defer close(out)
			close(started)
			<-ctx.Done()
		}()
		return out
	}

	job := Run(context.Background(), run, svc, 20*time.Millisecond)
	<-started
	time.Sleep(100 * time.Millisecond)
	require.NoError(job.Stop())
}

// TestJobStopReturnsWhenBarrierNeverDrains covers a stuck fan-out: the
// registered actor never acknowledges a barrier (as if an operator had
// returned on ctx.Done() before forwarding it downstream), so the
// epoch can never drain on its own. Stop() must still return promptly
// instead of blocking forever in CollectBarrier.
func TestJobStopReturnsWhenBarrierNeverDrains(t *testing.T) {
	require := require.New(t)
	manager := checkpoint.NewBarrierManager()
	manager.RegisterActor(1) // registered, but nothing ever acks it
	svc := checkpoint.NewBarrierService(manager)

	started := make(chan struct{})
	run := func(ctx context.Context) <-chan Result {
		out := make(chan Result)
		go func() {
			defer close(out)
			close(started)
			<-ctx.Done()
		}()
		return out
	}

	job := Run(context.Background(), run, svc, 5*time.Millisecond)
	<-started

	stopped := make(chan error, 1)
	go func() { stopped <- job.Stop() }()

	select {
	case err := <-stopped:
		require.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("job.Stop() blocked forever on a barrier that never drained")
	}
}
