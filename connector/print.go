package connector

import (
	"context"
	"fmt"

	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/streamql/streamql/checkpoint"
	"github.com/streamql/streamql/sql/array"
	"github.com/streamql/streamql/stream"
)

// ErrSinkOnly is returned by a sink-only connector's Read — the
// original's print.rs and black_hole.rs leave read() unimplemented
// entirely since nothing ever builds a Scan over a sink.
var ErrSinkOnly = errors.NewKind("%s is a sink-only connector")

// Print writes every row to stdout, one line per row — a direct port
// of print.rs's Write impl (`println!`).
type Print struct{}

func NewPrint() *Print { return &Print{} }

func (p *Print) Read(ctx context.Context) <-chan stream.Result {
	out := make(chan stream.Result, 1)
	out <- stream.Result{Err: ErrSinkOnly.New("print")}
	close(out)
	return out
}

func (p *Print) Write(c array.Chunk) error {
	for i := 0; i < c.Cardinality(); i++ {
		fmt.Println(c.Row(i).Values())
	}
	return nil
}

func (p *Print) OnReceiveBarrier(b checkpoint.Barrier) error { return nil }
