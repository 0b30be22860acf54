package patch

import (
	"fmt"

	"github.com/brunoga/deep/v3"
)

// Clone returns a deep copy of v, suitable as a private draft. It fails for
// values deep cannot copy, such as channels.
func Clone[T any](v T) (T, error) {
	out, err := deep.Copy(v)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrUncopyable, err)
	}
	return out, nil
}
