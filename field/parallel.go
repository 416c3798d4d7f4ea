package field

import (
	"math/rand"
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/driftfield/components"
	"github.com/pthm-cable/driftfield/systems"
)

// parallelThreshold is the particle count below which the tick runs on the
// calling goroutine. Tiny fields (tests, probes) skip the pool entirely.
const parallelThreshold = 64

// chunkSize is the fixed number of particles per work unit. Chunk boundaries
// never move, so the per-chunk RNG streams are identical no matter how many
// workers the host machine has.
const chunkSize = 4096

// particleSnapshot is the read-only copy of one particle's state taken before
// the compute phase. Workers only ever see snapshots, never live components.
type particleSnapshot struct {
	Entity ecs.Entity
	Index  uint32
	Pos    components.Position
	Vel    components.Velocity
	Home   components.Home
	Tint   components.Tint
	Size   components.Size
}

// intent is the computed outcome for one particle, applied single-threaded
// after all workers finish.
type intent struct {
	Pos     components.Position
	Vel     components.Velocity
	Tint    components.Tint
	Size    components.Size
	Bounced bool
	Healed  uint8
}

// workChunk is a half-open snapshot range [start, end) for one worker.
type workChunk struct {
	start int
	end   int
	ctx   *systems.ForceContext
}

// parallelState owns the persistent worker pool and the snapshot/intent
// buffers reused every tick.
type parallelState struct {
	snapshots []particleSnapshot
	intents   []intent

	numWorkers int
	maxChunks  int
	workChan   chan workChunk
	doneChan   chan struct{}
	stopChan   chan struct{}
	wg         sync.WaitGroup
	running    bool
}

// newParallelState sizes the pool for a fixed particle capacity. Channels
// hold every chunk of a full tick so neither dispatch nor completion ever
// blocks a worker.
func newParallelState(capacity int) *parallelState {
	maxChunks := (capacity + chunkSize - 1) / chunkSize
	if maxChunks < 1 {
		maxChunks = 1
	}
	return &parallelState{
		snapshots:  make([]particleSnapshot, 0, capacity),
		intents:    make([]intent, 0, capacity),
		numWorkers: runtime.GOMAXPROCS(0),
		maxChunks:  maxChunks,
	}
}

func (p *parallelState) startWorkers(f *Field) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.maxChunks)
	p.doneChan = make(chan struct{}, p.maxChunks)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(f)
	}
}

func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()

	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *parallelState) worker(f *Field) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			f.computeChunk(chunk.start, chunk.end, chunk.ctx)
			p.doneChan <- struct{}{}
		}
	}
}

// snapshotParticles copies every particle into the snapshot buffer and
// resizes the intent buffer to match. Returns the particle count.
func (f *Field) snapshotParticles() int {
	p := f.parallel
	p.snapshots = p.snapshots[:0]

	query := f.particleFilter.Query()
	for query.Next() {
		pos, vel, home, st, tint, size := query.Get()
		p.snapshots = append(p.snapshots, particleSnapshot{
			Entity: query.Entity(),
			Index:  st.Index,
			Pos:    *pos,
			Vel:    *vel,
			Home:   *home,
			Tint:   *tint,
			Size:   *size,
		})
	}

	n := len(p.snapshots)
	if cap(p.intents) < n {
		p.intents = make([]intent, n)
	} else {
		p.intents = p.intents[:n]
	}
	return n
}

// computeParticles runs the force math over all snapshots, on the calling
// goroutine for small fields and on the worker pool otherwise.
func (f *Field) computeParticles(n int, ctx *systems.ForceContext) {
	if n == 0 {
		return
	}
	if n < parallelThreshold {
		f.computeChunk(0, n, ctx)
		return
	}

	p := f.parallel
	if !p.running {
		p.startWorkers(f)
	}

	dispatched := 0
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		p.workChan <- workChunk{start: start, end: end, ctx: ctx}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}

// computeChunk processes snapshots [i0, i1) into intents. The jitter RNG is
// seeded from the run seed, the tick, and the chunk start, so a run replays
// identically for a given seed and input sequence.
func (f *Field) computeChunk(i0, i1 int, ctx *systems.ForceContext) {
	p := f.parallel
	rng := rand.New(rand.NewSource(f.seed ^ int64(f.tick)<<20 ^ int64(i0)))

	for i := i0; i < i1; i++ {
		snap := &p.snapshots[i]
		out := &p.intents[i]

		res := systems.AccumulateForces(ctx, snap.Index,
			snap.Pos.X, snap.Pos.Y, snap.Pos.Z,
			snap.Home.X, snap.Home.Y, snap.Home.Z, rng)

		pos, vel, bounced, healed := systems.Integrate(
			ctx.Tuning, ctx.Params.Friction, ctx.Params.TimeScale, res, snap.Pos, snap.Vel)

		if ctx.Params.Align > ctx.Tuning.AlignMinLevel {
			pos = systems.AlignSnap(ctx.Tuning, ctx.Params.Align, pos)
		}

		r, g, b, size := systems.ColorTarget(ctx, vel, res.NearestHand)
		rate := ctx.Tuning.ColorRate

		out.Pos = pos
		out.Vel = vel
		out.Tint = components.Tint{
			R: systems.Lerp(snap.Tint.R, r, rate),
			G: systems.Lerp(snap.Tint.G, g, rate),
			B: systems.Lerp(snap.Tint.B, b, rate),
		}
		out.Size = components.Size{Value: systems.Lerp(snap.Size.Value, size, rate)}
		out.Bounced = bounced
		out.Healed = uint8(healed)
	}
}

// applyIntents writes the computed state back into the world. Runs on the
// tick goroutine only; workers are idle by the time it starts.
func (f *Field) applyIntents() (heals, bounces int) {
	p := f.parallel
	for i := range p.snapshots {
		snap := &p.snapshots[i]
		out := &p.intents[i]

		pos := f.posMap.Get(snap.Entity)
		vel := f.velMap.Get(snap.Entity)
		tint := f.tintMap.Get(snap.Entity)
		size := f.sizeMap.Get(snap.Entity)
		if pos == nil || vel == nil || tint == nil || size == nil {
			continue
		}

		*pos = out.Pos
		*vel = out.Vel
		*tint = out.Tint
		*size = out.Size

		heals += int(out.Healed)
		if out.Bounced {
			bounces++
		}
	}
	return heals, bounces
}

// fillOutputs refreshes the flat render buffers from the tick's intents.
// Buffer offsets come from the particle's fixed index, not query order.
func (f *Field) fillOutputs() {
	p := f.parallel
	for i := range p.snapshots {
		idx := p.snapshots[i].Index
		out := &p.intents[i]

		k := int(idx) * 3
		f.positions[k] = out.Pos.X
		f.positions[k+1] = out.Pos.Y
		f.positions[k+2] = out.Pos.Z
		f.colors[k] = out.Tint.R
		f.colors[k+1] = out.Tint.G
		f.colors[k+2] = out.Tint.B
		f.sizes[idx] = out.Size.Value
	}
}
