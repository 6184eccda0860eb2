// Package descheap lowers binding-model resource access in shader IR to
// descriptor heap access.
//
// Shaders written against descriptor sets address every texture, sampler,
// image and buffer by (set, binding). Hardware with descriptor heaps wants
// byte offsets into a resource heap and a sampler heap instead, or raw
// device addresses for buffers. A [heap.MappingTable] supplied by the
// application says, per range of bindings, where each descriptor lives:
//   - at a constant heap offset
//   - at an index read from push constants
//   - behind an address read from push constants, an indirect table or the
//     shader record
//   - inline, as push constant data or heap data
//
// The package provides a high-level entry point that runs the whole
// pipeline, as well as access to the individual stages in the heap and ir
// packages.
//
// Example usage:
//
//	table := heap.MappingTable{{
//	    DescriptorSet: 0,
//	    BindingCount:  16,
//	    ResourceMask:  ir.ResourceSampledImage,
//	    Source:        heap.PushIndex{PushOffset: 0, HeapIndexStride: 64},
//	}}
//	res, err := descheap.Lower(shader, table, descheap.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, s := range res.EmbeddedSamplers {
//	    createSampler(s.Index, s.Descriptor)
//	}
package descheap

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/descheap/heap"
	"github.com/gogpu/descheap/ir"
)

// Options configures the lowering pipeline.
type Options struct {
	// FixupUniformDerefs moves uniform-mode deref chains that reach a
	// uniform buffer through a heap pointer to UBO mode before lowering.
	FixupUniformDerefs bool

	// Validate enables IR validation before and after lowering
	Validate bool
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		FixupUniformDerefs: true,
		Validate:           true,
	}
}

// Lower rewrites shader in place so that every resource access covered by
// table goes through the descriptor heaps.
//
// The pipeline is:
//  1. Retag uniform buffer deref chains (if enabled)
//  2. Validate IR (if enabled)
//  3. Lower descriptor accesses
//  4. Validate IR again (if enabled)
//
// Result.Progress is true if either the retagging or the lowering changed
// the shader.
func Lower(shader *ir.Shader, table heap.MappingTable, opts Options) (heap.Result, error) {
	if shader == nil {
		return heap.Result{}, heap.NewError(heap.ErrInvalidShader, "shader is nil")
	}

	fixed := false
	if opts.FixupUniformDerefs {
		fixed = heap.FixupUniformBufferDerefs(shader)
	}

	if opts.Validate {
		if err := validate(shader); err != nil {
			return heap.Result{}, fmt.Errorf("input %w", err)
		}
	}

	res, err := heap.Lower(shader, table)
	if err != nil {
		return heap.Result{}, fmt.Errorf("lowering error: %w", err)
	}
	res.Progress = res.Progress || fixed

	if opts.Validate {
		if err := validate(shader); err != nil {
			return heap.Result{}, fmt.Errorf("lowered %w", err)
		}
	}
	return res, nil
}

// Validate validates shader IR for correctness.
//
// Returns a slice of validation errors. If the slice is empty, validation passed.
func Validate(shader *ir.Shader) ([]ir.ValidationError, error) {
	return ir.Validate(shader)
}

func validate(shader *ir.Shader) error {
	errs, err := ir.Validate(shader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errs[0])
	}
	return nil
}

// SetLogger configures the logger used by the lowering pipeline.
// Pass nil to disable logging.
func SetLogger(l *slog.Logger) {
	heap.SetLogger(l)
}
