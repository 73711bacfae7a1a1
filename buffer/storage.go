package buffer

import (
	"github.com/go-sif/colframe"
)

// storage is the typed, contiguous backing array of a Buffer. Values passed to
// set are already coerced to the native element type of the storage.
type storage interface {
	len() int
	get(i int) interface{}
	set(i int, v interface{})
	clone() storage
	take(idx []int) storage
	copyInto(dst storage, off int)
}

type vec[T any] []T

func (v vec[T]) len() int { return len(v) }

func (v vec[T]) get(i int) interface{} { return v[i] }

func (v vec[T]) set(i int, x interface{}) { v[i] = x.(T) }

func (v vec[T]) clone() storage {
	out := make(vec[T], len(v))
	copy(out, v)
	return out
}

// take gathers the given positions. Negative positions produce the zero value.
func (v vec[T]) take(idx []int) storage {
	out := make(vec[T], len(idx))
	for k, i := range idx {
		if i >= 0 {
			out[k] = v[i]
		}
	}
	return out
}

func (v vec[T]) copyInto(dst storage, off int) {
	copy(dst.(vec[T])[off:], v)
}

func makeStorage(kind colframe.Kind, n int) storage {
	switch kind {
	case colframe.KindBool:
		return make(vec[bool], n)
	case colframe.KindInt8:
		return make(vec[int8], n)
	case colframe.KindInt16:
		return make(vec[int16], n)
	case colframe.KindInt32:
		return make(vec[int32], n)
	case colframe.KindInt64, colframe.KindDatetime, colframe.KindTimedelta:
		return make(vec[int64], n)
	case colframe.KindUint8:
		return make(vec[uint8], n)
	case colframe.KindUint16:
		return make(vec[uint16], n)
	case colframe.KindUint32:
		return make(vec[uint32], n)
	case colframe.KindUint64:
		return make(vec[uint64], n)
	case colframe.KindFloat32:
		return make(vec[float32], n)
	case colframe.KindFloat64:
		return make(vec[float64], n)
	default:
		return make(vec[interface{}], n)
	}
}
