// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/descheap/ir"
)

// MappingEntry maps a range of bindings in one descriptor set to a
// descriptor heap source.
type MappingEntry struct {
	DescriptorSet uint32
	FirstBinding  uint32
	BindingCount  uint32

	// ResourceMask is the set of resource classes the entry applies to.
	ResourceMask ir.ResourceKind

	// Source describes how the heap offset or address is computed.
	Source Source
}

// LastBinding returns the last binding covered by the entry. Ranges that
// would overflow are clamped to math.MaxUint32. The second result is false
// for an empty range.
func (e *MappingEntry) LastBinding() (uint32, bool) {
	if e.BindingCount == 0 {
		return 0, false
	}
	last := uint64(e.FirstBinding) + uint64(e.BindingCount) - 1
	if last > math.MaxUint32 {
		return math.MaxUint32, true
	}
	return uint32(last), true
}

// Contains reports whether binding falls in the entry's range.
func (e *MappingEntry) Contains(binding uint32) bool {
	last, ok := e.LastBinding()
	return ok && binding >= e.FirstBinding && binding <= last
}

// Matches reports whether the entry applies to a resource of the given
// class at (set, binding). kind must be a single resource class.
func (e *MappingEntry) Matches(set, binding uint32, kind ir.ResourceKind) bool {
	return kind.Single() &&
		e.DescriptorSet == set &&
		e.Contains(binding) &&
		e.ResourceMask.Has(kind)
}

// MappingTable is an ordered list of mapping entries. Order defines lookup
// precedence: the first matching entry wins.
type MappingTable []MappingEntry

// Find returns the first entry matching (set, binding, kind).
func (t MappingTable) Find(set, binding uint32, kind ir.ResourceKind) (*MappingEntry, bool) {
	for i := range t {
		if t[i].Matches(set, binding, kind) {
			return &t[i], true
		}
	}
	return nil, false
}

// Validate checks that every entry can be used by the lowering pass.
// Overlapping entries are allowed; the first match wins.
func (t MappingTable) Validate() error {
	var errs []error
	for i := range t {
		e := &t[i]
		if e.Source == nil {
			errs = append(errs, fmt.Errorf("entry %d: no source", i))
			continue
		}
		if e.ResourceMask&^ir.ResourceAll != 0 {
			errs = append(errs, fmt.Errorf("entry %d: unknown resource classes %#x", i, uint32(e.ResourceMask&^ir.ResourceAll)))
		}
		if err := e.Source.validate(); err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i, e.Source.Kind(), err))
		}
	}
	return errors.Join(errs...)
}
