// Package gpu is the GPU runtime facade (device, queue, pipeline cache,
// texture/buffer allocator, dispatch helpers) threaded through the
// align-and-merge core. It wraps a github.com/gogpu/gpucontext.DeviceProvider
// so the core shares GPU resources with a host application instead of owning
// a device outright, the same split gogpu/gg's render.DeviceHandle uses.
//
// This facade always runs in CPU-only mode: provider is carried purely as
// the seam a host would use to hand in a real wgpu/hal device, but no
// kernel here issues a wgpu/hal call. Every "Pipeline" built through
// Context.Pipeline is a plain Go closure, and AllocTexture/AllocBuffer are
// host-memory slices — the same shape as the teacher's software backend,
// not a stub of its hal-backed one. Reaching for real device dispatch would
// mean either fabricating compute-pipeline/bind-group calls the teacher
// itself never finishes (its own PipelineCache.createStripPipeline and
// friends stop at a Stub*ID placeholder) or genuinely depending on a GPU at
// test time, so the facade stays CPU-only and honest about it.
package gpu

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/hdrplus/herrors"
)

// Pipeline is an opaque compiled compute pipeline handle. Concrete kernel
// packages (texture, align, merge/frequency) define what Pipeline wraps for
// their own kernels; Context only caches and hands them back by name.
type Pipeline interface{}

// Context is the process-lived GPU runtime facade: device, queue, and
// pipeline cache. A Context is created once per host process and shared
// across bursts; per-burst state (textures, buffers) is allocated and
// released separately via AllocTexture / AllocBuffer / Release.
type Context struct {
	provider gpucontext.DeviceProvider
	log      *slog.Logger

	cacheMu sync.RWMutex
	cache   map[string]Pipeline

	hits   uint64
	misses uint64
}

// NewContext wraps an existing device provider. provider may be nil, in
// which case Context operates in CPU-only mode (no real device backs the
// allocations; kernels run their software fallback path). This mirrors
// render.NullDeviceHandle in the teacher.
func NewContext(provider gpucontext.DeviceProvider, log *slog.Logger) *Context {
	if log == nil {
		log = slog.Default()
	}
	return &Context{
		provider: provider,
		log:      log,
		cache:    make(map[string]Pipeline),
	}
}

// Provider returns the underlying device provider (nil in CPU-only mode).
func (c *Context) Provider() gpucontext.DeviceProvider { return c.provider }

// Pipeline returns the cached pipeline for name, building it via build if
// absent. Lookups are O(1) after the first build. A build failure is never
// cached and is surfaced as herrors.Pipeline — compile/pipeline-state
// failures are fatal per spec.
func (c *Context) Pipeline(name string, build func() (Pipeline, error)) (Pipeline, error) {
	c.cacheMu.RLock()
	if p, ok := c.cache[name]; ok {
		c.cacheMu.RUnlock()
		atomic.AddUint64(&c.hits, 1)
		return p, nil
	}
	c.cacheMu.RUnlock()

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	if p, ok := c.cache[name]; ok {
		atomic.AddUint64(&c.hits, 1)
		return p, nil
	}

	p, err := build()
	if err != nil {
		return nil, herrors.New(herrors.Pipeline, fmt.Sprintf("gpu.Pipeline(%s)", name), err)
	}
	c.cache[name] = p
	atomic.AddUint64(&c.misses, 1)
	c.log.Debug("gpu: pipeline compiled", "kernel", name)
	return p, nil
}

// Hits returns the pipeline cache hit count, for diagnostics.
func (c *Context) Hits() uint64 { return atomic.LoadUint64(&c.hits) }

// Misses returns the pipeline cache miss (build) count, for diagnostics.
func (c *Context) Misses() uint64 { return atomic.LoadUint64(&c.misses) }

// DispatchSize rounds totalThreads up to the number of thread groups needed
// given maxThreadsPerGroup, matching the teacher's workgroup-count
// validation (internal/gpu/compute_pass.go): group counts are never zero
// and never fractional.
func DispatchSize(totalThreads, maxThreadsPerGroup int) int {
	if maxThreadsPerGroup <= 0 {
		maxThreadsPerGroup = 1
	}
	if totalThreads <= 0 {
		return 0
	}
	return (totalThreads + maxThreadsPerGroup - 1) / maxThreadsPerGroup
}
