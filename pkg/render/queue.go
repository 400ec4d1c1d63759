package render

import (
	"image/color"

	"github.com/taigrr/softpoly/internal/mem"
	"github.com/taigrr/softpoly/internal/parallel"
)

// DefaultArenaSize is the number of clip-column entries a Queue can hold
// per frame before it has to drain.
const DefaultArenaSize = 1 << 18

// Queue records draw calls for a worker pool. Every queued command runs once
// on every worker, each writing only its own rows.
//
// A Queue is used from a single producer goroutine.
type Queue struct {
	ctx     *Context
	pool    *parallel.Pool
	arena   *mem.Arena[int16]
	dropped int
}

// NewQueue creates a queue drawing through ctx on pool. arenaSize bounds
// the clip columns held by in-flight commands; 0 selects DefaultArenaSize.
func NewQueue(ctx *Context, pool *parallel.Pool, arenaSize int) *Queue {
	if arenaSize <= 0 {
		arenaSize = DefaultArenaSize
	}
	return &Queue{
		ctx:   ctx,
		pool:  pool,
		arena: mem.NewArena[int16](arenaSize),
	}
}

// drawCommand is a queued DrawArrays call. It owns copies of everything the
// caller may reuse after queueing.
type drawCommand struct {
	ctx  *Context
	args DrawArgs
	ccw  bool
}

func (c *drawCommand) Execute(part parallel.Partition) {
	c.ctx.drawArrays(&c.args, c.ccw, part)
}

// DrawArrays queues a draw call. The vertex array and clip columns are
// copied, so the caller may reuse them immediately. The mirror state is
// captured now. It reports false when the draw was dropped.
func (q *Queue) DrawArrays(args *DrawArgs) bool {
	if len(args.Vertices) < 3 {
		Logger().Debug("render: draw call needs at least 3 vertices", "count", len(args.Vertices))
		return false
	}

	cmd := &drawCommand{ctx: q.ctx, args: *args, ccw: args.CCW != q.ctx.mirror}
	cmd.args.Vertices = append([]TriVertex(nil), args.Vertices...)

	if args.ClipTop != nil {
		top, bottom, ok := q.copyClip(args)
		if !ok {
			// Drain, recycle the arena and try once more.
			Logger().Debug("render: clip arena full, draining", "used", q.arena.Used(), "arena", q.arena.Cap())
			q.pool.Wait()
			q.arena.Reset()
			top, bottom, ok = q.copyClip(args)
		}
		if !ok {
			q.dropped++
			Logger().Warn("render: clip arena exhausted, dropping draw",
				"columns", len(args.ClipTop), "arena", q.arena.Cap(), "dropped", q.dropped)
			return false
		}
		cmd.args.ClipTop, cmd.args.ClipBottom = top, bottom
	}

	return q.pool.Submit(cmd)
}

// copyClip copies the used part of the clip columns into the arena.
func (q *Queue) copyClip(args *DrawArgs) (top, bottom []int16, ok bool) {
	n := min(args.ClipRight+1, len(args.ClipTop), len(args.ClipBottom))
	if n <= 0 {
		// Nothing to copy; validation in the worker rejects the draw.
		return args.ClipTop[:0], args.ClipBottom[:0], true
	}
	if top, ok = q.arena.Copy(args.ClipTop[:n]); !ok {
		return nil, nil, false
	}
	if bottom, ok = q.arena.Copy(args.ClipBottom[:n]); !ok {
		return nil, nil, false
	}
	return top, bottom, true
}

// DeferredLight queues the deferred light pass. Each worker lights the rows
// it draws, so the pass runs in order with the draws around it.
func (q *Queue) DeferredLight(globVis float32) {
	fb, accel := q.ctx.target, q.ctx.accel
	q.pool.Submit(parallel.CommandFunc(func(part parallel.Partition) {
		DeferredLight(fb, globVis, accel, part)
	}))
}

// DrawRect queues a filled rectangle in framebuffer coordinates.
func (q *Queue) DrawRect(x, y, w, h int, c color.RGBA) {
	fb := q.ctx.target
	q.pool.Submit(parallel.CommandFunc(func(part parallel.Partition) {
		fb.FillRect(x, y, w, h, c, part)
	}))
}

// Finish blocks until every queued command has completed and recycles the
// arena. Call it once per frame before reading the framebuffer.
func (q *Queue) Finish() {
	q.pool.Wait()
	q.arena.Reset()
}

// Dropped returns the number of draws dropped for lack of arena space.
func (q *Queue) Dropped() int { return q.dropped }
