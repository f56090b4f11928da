package serializer

import (
	"strconv"
	"strings"

	"avaneesh/satstate-go/pkg/bits"
)

// Bool encodes a boolean in one bit
type Bool struct{}

// NewBool creates a boolean serializer
func NewBool() Bool {
	return Bool{}
}

func (Bool) Bitsize() int { return 1 }

func (Bool) Put(dst *bits.Buffer, off int, v bool) {
	dst.Set(off, v)
}

func (Bool) Get(src *bits.Buffer, off int) bool {
	return src.Get(off)
}

func (Bool) Format(v bool) string {
	return strconv.FormatBool(v)
}

func (Bool) Parse(s string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, invalidValue(s, err)
	}
	return v, nil
}
