package ir

import "fmt"

// ExplicitSize returns the size in bytes of a type with explicit layout.
// Runtime-sized arrays contribute zero elements.
//
//nolint:gocyclo,cyclop // Layout queries must handle every type kind
func ExplicitSize(types []Type, handle TypeHandle) (uint32, error) {
	if int(handle) >= len(types) {
		return 0, fmt.Errorf("type handle %d out of range (max %d)", handle, len(types))
	}

	switch t := types[handle].Inner.(type) {
	case ScalarType:
		return uint32(t.Width), nil
	case VectorType:
		return uint32(t.Size) * uint32(t.Scalar.Width), nil
	case MatrixType:
		stride := t.Stride
		if stride == 0 {
			stride = uint32(t.Rows) * uint32(t.Scalar.Width)
		}
		return uint32(t.Columns) * stride, nil
	case ArrayType:
		if t.Size.Constant == nil {
			return 0, nil
		}
		stride, err := ArrayStride(types, handle)
		if err != nil {
			return 0, err
		}
		return *t.Size.Constant * stride, nil
	case StructType:
		return t.Span, nil
	case AtomicType:
		return uint32(t.Scalar.Width), nil
	case SamplerType, ImageType, AccelerationStructureType, DescriptorType:
		return 0, fmt.Errorf("type %d (%T) has no explicit layout", handle, t)
	default:
		return 0, fmt.Errorf("unknown type kind: %T", t)
	}
}

// ArrayStride returns the element stride of an array type. A zero declared
// stride falls back to the tightly packed element size.
func ArrayStride(types []Type, handle TypeHandle) (uint32, error) {
	if int(handle) >= len(types) {
		return 0, fmt.Errorf("type handle %d out of range (max %d)", handle, len(types))
	}
	arr, ok := types[handle].Inner.(ArrayType)
	if !ok {
		return 0, fmt.Errorf("type %d is not an array", handle)
	}
	if arr.Stride != 0 {
		return arr.Stride, nil
	}
	return ExplicitSize(types, arr.Base)
}

// ElementStride returns the distance in bytes between consecutive elements
// of an array, the columns of a matrix or the components of a vector.
func ElementStride(types []Type, handle TypeHandle) (uint32, error) {
	if int(handle) >= len(types) {
		return 0, fmt.Errorf("type handle %d out of range (max %d)", handle, len(types))
	}
	switch t := types[handle].Inner.(type) {
	case ArrayType:
		return ArrayStride(types, handle)
	case MatrixType:
		if t.Stride != 0 {
			return t.Stride, nil
		}
		return uint32(t.Rows) * uint32(t.Scalar.Width), nil
	case VectorType:
		return uint32(t.Scalar.Width), nil
	default:
		return 0, fmt.Errorf("type %d (%T) cannot be indexed", handle, t)
	}
}

// MemberOffset returns the byte offset of a struct member.
func MemberOffset(types []Type, handle TypeHandle, field uint32) (uint32, error) {
	if int(handle) >= len(types) {
		return 0, fmt.Errorf("type handle %d out of range (max %d)", handle, len(types))
	}
	st, ok := types[handle].Inner.(StructType)
	if !ok {
		return 0, fmt.Errorf("type %d is not a struct", handle)
	}
	if int(field) >= len(st.Members) {
		return 0, fmt.Errorf("struct %d has no member %d", handle, field)
	}
	return st.Members[field].Offset, nil
}

// ScalarOf returns the scalar type underlying scalars, vectors, matrices
// and atomics.
func ScalarOf(types []Type, handle TypeHandle) (ScalarType, bool) {
	if int(handle) >= len(types) {
		return ScalarType{}, false
	}
	switch t := types[handle].Inner.(type) {
	case ScalarType:
		return t, true
	case VectorType:
		return t.Scalar, true
	case MatrixType:
		return t.Scalar, true
	case AtomicType:
		return t.Scalar, true
	default:
		return ScalarType{}, false
	}
}

// ImageOf returns the image type of an image or array-of-images type.
func ImageOf(types []Type, handle TypeHandle) (ImageType, bool) {
	for i := 0; i <= len(types) && int(handle) < len(types); i++ {
		switch t := types[handle].Inner.(type) {
		case ImageType:
			return t, true
		case ArrayType:
			handle = t.Base
		default:
			return ImageType{}, false
		}
	}
	return ImageType{}, false
}
