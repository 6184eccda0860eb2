package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeRegistry deduplicates structurally identical types so that layout
// queries and type comparisons can work on handles.
//
// The first name registered for a shape wins; later registrations of the
// same shape under another name return the existing handle.
type TypeRegistry struct {
	types  []Type
	byKey  map[string]TypeHandle
	keyBuf strings.Builder
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types: make([]Type, 0, 16),
		byKey: make(map[string]TypeHandle, 16),
	}
}

// GetOrCreate returns the handle of inner, registering it under name if
// no structurally identical type exists yet.
func (r *TypeRegistry) GetOrCreate(name string, inner TypeInner) TypeHandle {
	r.keyBuf.Reset()
	writeTypeKey(&r.keyBuf, inner)
	key := r.keyBuf.String()

	if h, ok := r.byKey[key]; ok {
		return h
	}
	h := TypeHandle(len(r.types))
	r.types = append(r.types, Type{Name: name, Inner: inner})
	r.byKey[key] = h
	return h
}

// GetTypes returns the registered types, indexed by handle. The slice is
// suitable for Shader.Types.
func (r *TypeRegistry) GetTypes() []Type {
	return r.types
}

// Lookup finds a type by its handle.
func (r *TypeRegistry) Lookup(h TypeHandle) (Type, bool) {
	if int(h) >= len(r.types) {
		return Type{}, false
	}
	return r.types[h], true
}

// Count returns the number of unique types registered.
func (r *TypeRegistry) Count() int {
	return len(r.types)
}

// writeTypeKey writes a key that is equal for two inner types exactly when
// they have the same shape. Composite types refer to their members by
// handle, which is already deduplicated.
func writeTypeKey(w *strings.Builder, inner TypeInner) {
	u := func(v uint64) { w.WriteString(strconv.FormatUint(v, 10)) }

	switch t := inner.(type) {
	case ScalarType:
		w.WriteString("s")
		u(uint64(t.Kind))
		w.WriteByte('.')
		u(uint64(t.Width))

	case VectorType:
		w.WriteString("v")
		u(uint64(t.Size))
		w.WriteByte(':')
		writeTypeKey(w, t.Scalar)

	case MatrixType:
		w.WriteString("m")
		u(uint64(t.Columns))
		w.WriteByte('x')
		u(uint64(t.Rows))
		w.WriteByte('/')
		u(uint64(t.Stride))
		w.WriteByte(':')
		writeTypeKey(w, t.Scalar)

	case AtomicType:
		w.WriteString("a:")
		writeTypeKey(w, t.Scalar)

	case ArrayType:
		w.WriteString("[")
		u(uint64(t.Base))
		w.WriteByte(';')
		if t.Size.Constant != nil {
			u(uint64(*t.Size.Constant))
		} else {
			w.WriteByte('*')
		}
		w.WriteByte('/')
		u(uint64(t.Stride))
		w.WriteByte(']')

	case StructType:
		// Member names are part of the shape.
		w.WriteString("{")
		u(uint64(t.Span))
		for _, m := range t.Members {
			w.WriteByte(',')
			w.WriteString(strconv.Quote(m.Name))
			w.WriteByte(':')
			u(uint64(m.Type))
			w.WriteByte('@')
			u(uint64(m.Offset))
		}
		w.WriteByte('}')

	case SamplerType:
		fmt.Fprintf(w, "sampler(%t)", t.Comparison)

	case ImageType:
		fmt.Fprintf(w, "image(%d,%t,%d,%t,%d)", t.Dim, t.Arrayed, t.Class, t.Multisampled, t.Format)

	case AccelerationStructureType:
		w.WriteString("accel")

	case DescriptorType:
		w.WriteString("desc")
		u(uint64(t.Kind))

	default:
		fmt.Fprintf(w, "%T", inner)
	}
}
