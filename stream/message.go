// Package stream implements the streaming job runtime: the Chunk/Barrier
// message envelope operators exchange, and the supervisor that drives
// one running streaming query — spawning its executor, ticking its
// checkpoint barriers, and tearing both down together.
package stream

import (
	"github.com/streamql/streamql/checkpoint"
	"github.com/streamql/streamql/sql/array"
)

// Message is the envelope an executor's output channel carries: either
// a data Chunk or a control Barrier, never both. This is the Go
// channel-based analogue of the original's `enum Message { Chunk, Barrier }`
// boxed stream item.
type Message struct {
	Chunk   array.Chunk
	Barrier checkpoint.Barrier
	IsBarrier bool
}

func ChunkMessage(c array.Chunk) Message { return Message{Chunk: c} }
func BarrierMessage(b checkpoint.Barrier) Message {
	return Message{Barrier: b, IsBarrier: true}
}

// Result is what flows over an executor's output channel: a Message or
// a terminal error. A closed channel with no error means the executor
// reached end of stream.
type Result struct {
	Msg Message
	Err error
}
