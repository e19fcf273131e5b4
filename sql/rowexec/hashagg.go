package rowexec

import (
	"context"

	"github.com/mitchellh/hashstructure"

	"github.com/streamql/streamql/sql/array"
	"github.com/streamql/streamql/sql/plan"
	"github.com/streamql/streamql/sql/types"
	"github.com/streamql/streamql/stream"
)

// groupKeyPart is the exported shape hashstructure walks to digest one
// GROUP BY key value — types.Value's fields are deliberately
// unexported (see sql/types), so the digest is computed over this
// plain projection of it instead.
type groupKeyPart struct {
	Kind types.Kind
	I    int32
	B    bool
	S    string
}

func toGroupKeyPart(v types.Value) groupKeyPart {
	return groupKeyPart{Kind: v.Kind(), I: v.Int32(), B: v.Bool(), S: v.String()}
}

func hashGroupKey(values []types.Value) uint64 {
	parts := make([]groupKeyPart, len(values))
	for i, v := range values {
		parts[i] = toGroupKeyPart(v)
	}
	h, err := hashstructure.Hash(parts, nil)
	if err != nil {
		// Only possible on an unhashable Go type, which groupKeyPart
		// never is; kept as a hard failure rather than silently
		// colliding every group into one bucket.
		panic(err)
	}
	return h
}

// equalKeys reports whether two group-key tuples are identical.
func equalKeys(a, b []types.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// processingWindowSize caps the rows per emitted hash-aggregate chunk;
// connector.ValueConnector batches by the same 1024.
const processingWindowSize = 1024

type aggEntry struct {
	keys   []types.Value
	values []types.Value
}

func initAggValue(kind plan.Kind) types.Value {
	if kind == plan.Count {
		return types.Int32Value(0)
	}
	return types.NullValue()
}

func appendAggValue(kind plan.Kind, current, input types.Value) (types.Value, error) {
	if kind == plan.Count {
		increment := types.Int32Value(0)
		if !input.IsNull() {
			increment = types.Int32Value(1)
		}
		return types.Add(current, increment)
	}
	return types.Add(current, input)
}

// buildAgg builds a hash-aggregate operator. Per chunk it updates
// persistent per-group state (never reset across chunks or barriers)
// and emits only the groups touched by that chunk — a direct port of
// hash_agg.rs's algorithm, including its "flush touched entries only,
// batched at processingWindowSize" output strategy.
func (b *Builder) buildAgg(eg *plan.EGraph, tree *plan.Tree) (Executor, error) {
	aggsTree, groupKeysTree, childTree := tree.Children[0], tree.Children[1], tree.Children[2]
	childExec, err := b.Build(eg, childTree)
	if err != nil {
		return nil, err
	}
	scanRefs, _ := findScanColumns(childTree)
	resolvedAggs := resolveColumnIndex(aggsTree, scanRefs, nil)
	resolvedGroupKeys := resolveColumnIndex(groupKeysTree, scanRefs, nil)

	aggKinds := make([]plan.Kind, len(resolvedAggs.Children))
	for i, c := range resolvedAggs.Children {
		aggKinds[i] = c.Node.Kind
	}
	outKinds, err := outputAggKinds(eg, aggsTree, groupKeysTree)
	if err != nil {
		return nil, err
	}

	actorID := b.allocActor()
	inner := func(ctx context.Context) <-chan stream.Result {
		in := childExec(ctx)
		out := make(chan stream.Result)
		go func() {
			defer close(out)
			ev := NewEvaluator()
			states := make(map[uint64]*aggEntry)

			flush := func(touched []uint64) bool {
				cb := array.NewChunkBuilder(outKinds, processingWindowSize)
				for _, h := range touched {
					entry := states[h]
					row := append(append([]types.Value{}, entry.values...), entry.keys...)
					if chunk, ok := cb.PushRow(row); ok {
						select {
						case out <- stream.Result{Msg: stream.ChunkMessage(chunk)}:
						case <-ctx.Done():
							return false
						}
					}
				}
				if chunk, ok := cb.Take(); ok {
					select {
					case out <- stream.Result{Msg: stream.ChunkMessage(chunk)}:
					case <-ctx.Done():
						return false
					}
				}
				return true
			}

			for res := range in {
				if res.Err != nil {
					out <- res
					return
				}
				if res.Msg.IsBarrier {
					select {
					case out <- res:
					case <-ctx.Done():
						return
					}
					continue
				}
				chunk := res.Msg.Chunk
				rowCount := chunk.Cardinality()

				argArrays := make([]interface{ Get(int) types.Value }, len(resolvedAggs.Children))
				for i, a := range resolvedAggs.Children {
					arr, err := ev.Eval(a, chunk)
					if err != nil {
						out <- stream.Result{Err: err}
						return
					}
					argArrays[i] = arr
				}
				var groupArrays []array.Array
				if len(resolvedGroupKeys.Children) > 0 {
					gc, err := ev.EvalList(resolvedGroupKeys, chunk)
					if err != nil {
						out <- stream.Result{Err: err}
						return
					}
					groupArrays = gc.Arrays()
				}

				touchedOrder := make([]uint64, 0, rowCount)
				touchedSeen := make(map[uint64]bool, rowCount)
				for row := 0; row < rowCount; row++ {
					keyValues := make([]types.Value, len(groupArrays))
					for i, a := range groupArrays {
						keyValues[i] = a.Get(row)
					}
					h := hashGroupKey(keyValues)
					entry, ok := states[h]
					// A hash hit counts only if the stored key tuple is equal;
					// a colliding tuple probes the next slot.
					for ok && !equalKeys(entry.keys, keyValues) {
						h++
						entry, ok = states[h]
					}
					if !ok {
						entry = &aggEntry{keys: keyValues, values: make([]types.Value, len(aggKinds))}
						for i, k := range aggKinds {
							entry.values[i] = initAggValue(k)
						}
						states[h] = entry
					}
					for i, arr := range argArrays {
						v, err := appendAggValue(aggKinds[i], entry.values[i], arr.Get(row))
						if err != nil {
							out <- stream.Result{Err: err}
							return
						}
						entry.values[i] = v
					}
					if !touchedSeen[h] {
						touchedSeen[h] = true
						touchedOrder = append(touchedOrder, h)
					}
				}
				if !flush(touchedOrder) {
					return
				}
			}
		}()
		return out
	}
	return b.wrapExecutor(actorID, inner), nil
}

func outputAggKinds(eg *plan.EGraph, aggs, groupKeys *plan.Tree) ([]types.Kind, error) {
	kinds := make([]types.Kind, 0, len(aggs.Children)+len(groupKeys.Children))
	for _, c := range aggs.Children {
		r := eg.Type(c.ID)
		if r.Err != nil {
			return nil, r.Err
		}
		kinds = append(kinds, r.DataType.Kind)
	}
	for _, c := range groupKeys.Children {
		r := eg.Type(c.ID)
		if r.Err != nil {
			return nil, r.Err
		}
		kinds = append(kinds, r.DataType.Kind)
	}
	return kinds, nil
}
