package rowexec

import (
	"context"

	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/streamql/streamql/checkpoint"
	"github.com/streamql/streamql/connector"
	"github.com/streamql/streamql/sql/array"
	"github.com/streamql/streamql/sql/catalog"
	"github.com/streamql/streamql/sql/plan"
	"github.com/streamql/streamql/sql/types"
	"github.com/streamql/streamql/stream"
)

// ErrUnknownConnector is raised when a table's WITH (connector = ...)
// option doesn't name one of the four connectors selectable by option
// (datagen, print, blackhole, filesystem); the values connector is
// built only from an INSERT ... VALUES plan.
var ErrUnknownConnector = errors.NewKind("unknown connector %q for table %s")

// Executor is the Go channel-based analogue of the original's boxed
// `Stream<Item = Result<Message, ExecuteError>>`: calling it starts the
// operator's goroutine(s) and returns the channel it publishes results
// on. ctx cancellation is this engine's substitute for the original's
// task-abort-on-drop.
type Executor func(ctx context.Context) <-chan stream.Result

// Builder lowers a concrete plan.Tree into a runnable Executor,
// wiring each streaming operator into the shared BarrierManager as it
// goes — the Go counterpart of ExecutorBuilder.
type Builder struct {
	catalog        *catalog.Database
	barrierManager *checkpoint.BarrierManager
	nextActor      checkpoint.ActorID
}

func NewBuilder(db *catalog.Database, bm *checkpoint.BarrierManager) *Builder {
	return &Builder{catalog: db, barrierManager: bm}
}

func (b *Builder) allocActor() checkpoint.ActorID {
	id := b.nextActor
	b.nextActor++
	return id
}

// IsDDL reports whether tree's root is a one-shot DDL statement,
// matching ExecutorBuilder::is_ddl — callers use this to decide
// whether a Run() call should register a running streaming job or
// simply apply the DDL and return no job id.
func IsDDL(tree *plan.Tree) bool { return tree.Node.IsDDL() }

// Build dispatches on the root node's kind, matching ExecutorBuilder::build.
func (b *Builder) Build(eg *plan.EGraph, tree *plan.Tree) (Executor, error) {
	switch tree.Node.Kind {
	case plan.CreateTable:
		return b.buildCreateTable(tree), nil
	case plan.Drop:
		return b.buildDrop(tree), nil
	case plan.Insert:
		return b.buildInsert(eg, tree)
	case plan.Scan:
		return b.buildTableScan(eg, tree)
	case plan.Proj:
		return b.buildProj(eg, tree)
	case plan.Agg:
		return b.buildAgg(eg, tree)
	case plan.Filter, plan.Limit, plan.Order:
		// Structural pass-throughs: WHERE/ORDER BY/LIMIT are bound into
		// the plan but, like the original's equivalent build() arms,
		// are not enforced by the executor — the child's executor is
		// returned unwrapped, at the same actor identity.
		return b.Build(eg, tree.Children[len(tree.Children)-1])
	default:
		return nil, errors.NewKind("cannot build an executor for plan node kind %v").New(tree.Node.Kind)
	}
}

// wrapExecutor registers actorID and returns a conduit that intercepts
// Barrier messages flowing through inner's output, notifying the
// barrier manager before re-yielding them — the Go port of WrapExecutor.
func (b *Builder) wrapExecutor(actorID checkpoint.ActorID, inner Executor) Executor {
	b.barrierManager.RegisterActor(actorID)
	return func(ctx context.Context) <-chan stream.Result {
		in := inner(ctx)
		out := make(chan stream.Result)
		go func() {
			defer close(out)
			for res := range in {
				if res.Err == nil && res.Msg.IsBarrier {
					b.barrierManager.NotifyBarrierComplete(checkpoint.Epoch(res.Msg.Barrier.Epoch), actorID)
				}
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
				if res.Err != nil {
					return
				}
			}
		}()
		return out
	}
}

// resolveTableColumns returns the column refs scanColumns (a List of
// Column nodes) names, in order.
func resolveTableColumns(scanColumns *plan.Tree) []catalog.ColumnRefID {
	refs := make([]catalog.ColumnRefID, len(scanColumns.Children))
	for i, c := range scanColumns.Children {
		refs[i] = c.Node.ColumnRef
	}
	return refs
}

func columnKindsFor(db *catalog.Database, refs []catalog.ColumnRefID) ([]types.Kind, error) {
	kinds := make([]types.Kind, len(refs))
	for i, r := range refs {
		col, ok := db.GetColumn(r)
		if !ok {
			return nil, errors.NewKind("unresolvable column ref %v").New(r)
		}
		kinds[i] = col.DataType().Kind
	}
	return kinds, nil
}

func columnIDsFor(refs []catalog.ColumnRefID) connector.ColumnIDs {
	ids := make(connector.ColumnIDs, len(refs))
	for i, r := range refs {
		ids[i] = uint32(r.ColumnID)
	}
	return ids
}

// getConnector builds the concrete connector a table's WITH (connector
// = '...') option names, matching ExecutorBuilder::get_connector.
func (b *Builder) getConnector(table *catalog.Table, refs []catalog.ColumnRefID, forWrite bool) (connector.StreamConnector, error) {
	kind, _ := table.GetOption("connector")
	switch kind {
	case "datagen":
		return connector.NewDataGenSource(columnIDsFor(refs)), nil
	case "print":
		return connector.NewPrint(), nil
	case "blackhole", "":
		return connector.NewBlackHole(), nil
	case "filesystem":
		opts := table.GetOptions()
		if forWrite {
			return connector.NewFileSystemSink(opts)
		}
		kinds, err := columnKindsFor(b.catalog, refs)
		if err != nil {
			return nil, err
		}
		return connector.NewFileSystemSource(opts, kinds)
	default:
		return nil, ErrUnknownConnector.New(kind, table.Name())
	}
}

func (b *Builder) buildTableScan(eg *plan.EGraph, tree *plan.Tree) (Executor, error) {
	tableID := tree.Children[0].Node.TableRef
	table, ok := b.catalog.GetTable(tableID)
	if !ok {
		return nil, catalog.ErrNotFound.New("table", tableID)
	}
	refs := resolveTableColumns(tree.Children[1])
	conn, err := b.getConnector(table, refs, false)
	if err != nil {
		return nil, err
	}

	actorID := b.allocActor()
	b.barrierManager.RegisterActor(actorID)
	barrierCh := b.barrierManager.RegisterSender(actorID)

	return func(ctx context.Context) <-chan stream.Result {
		dataCh := conn.Read(ctx)
		out := make(chan stream.Result)

		// handleBarrier applies an incoming barrier and publishes it
		// downstream, returning false if the loop should stop.
		handleBarrier := func(barrier checkpoint.Barrier) bool {
			if err := conn.OnReceiveBarrier(barrier); err != nil {
				out <- stream.Result{Err: err}
				return false
			}
			b.barrierManager.NotifyBarrierComplete(checkpoint.Epoch(barrier.Epoch), actorID)
			select {
			case out <- stream.Result{Msg: stream.BarrierMessage(barrier)}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		go func() {
			defer close(out)
			for {
				// Priority merge: a pending barrier always wins over a
				// pending data chunk, matching the original's
				// select_with_strategy(PollNext::Left).
				select {
				case barrier, ok := <-barrierCh:
					if !ok || !handleBarrier(barrier) {
						return
					}
					continue
				default:
				}
				select {
				case barrier, ok := <-barrierCh:
					if !ok || !handleBarrier(barrier) {
						return
					}
				case res, ok := <-dataCh:
					if !ok {
						return
					}
					select {
					case out <- res:
					case <-ctx.Done():
						return
					}
					if res.Err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}, nil
}

func (b *Builder) buildCreateTable(tree *plan.Tree) Executor {
	data := tree.Node.CreateTable
	return func(ctx context.Context) <-chan stream.Result {
		out := make(chan stream.Result, 1)
		schema, ok := b.catalog.GetSchema(data.SchemaID)
		if !ok {
			out <- stream.Result{Err: catalog.ErrNotFound.New("schema", data.SchemaID)}
			close(out)
			return out
		}
		table, err := schema.AddTable(data.Name)
		if err != nil {
			out <- stream.Result{Err: err}
			close(out)
			return out
		}
		for _, c := range data.Columns {
			if _, err := table.AddColumn(c.Name, c.Desc); err != nil {
				out <- stream.Result{Err: err}
				close(out)
				return out
			}
		}
		table.AddOptions(data.Options)
		out <- stream.Result{Msg: stream.ChunkMessage(array.NewChunk(nil))}
		close(out)
		return out
	}
}

func (b *Builder) buildDrop(tree *plan.Tree) Executor {
	data := tree.Node.Drop
	return func(ctx context.Context) <-chan stream.Result {
		out := make(chan stream.Result, 1)
		if data.Object.IsTable {
			b.catalog.DropTable(data.Object.Table)
		}
		out <- stream.Result{Msg: stream.ChunkMessage(array.NewChunk(nil))}
		close(out)
		return out
	}
}
