package registry

import "avaneesh/satstate-go/pkg/field"

// Internal returns the internal field name if it holds values of type T
func Internal[T any](r *Registry, name string) (*field.Field[T], bool) {
	b, ok := r.FindInternalField(name)
	if !ok {
		return nil, false
	}
	f, ok := b.(*field.Field[T])
	return f, ok
}

// Readable returns the readable field name if it holds values of type T
func Readable[T any](r *Registry, name string) (*field.Field[T], bool) {
	b, ok := r.FindReadableField(name)
	if !ok {
		return nil, false
	}
	f, ok := b.(*field.Field[T])
	return f, ok
}

// Writable returns the writable field name if it holds values of type T
func Writable[T any](r *Registry, name string) (*field.Field[T], bool) {
	b, ok := r.FindWritableField(name)
	if !ok {
		return nil, false
	}
	f, ok := b.(*field.Field[T])
	return f, ok
}
