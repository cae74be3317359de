package errorz

import (
	"errors"
	"strings"
)

// ErrEmpty indicates a required value was not provided.
var ErrEmpty = errors.New("empty")

// InvalidInput signals that a provided input is invalid due to the wrapped errors.
type InvalidInput []error

func (e InvalidInput) Error() string {
	var b strings.Builder
	b.WriteString("invalid input:\n")
	for _, err := range e {
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

func (e InvalidInput) Unwrap() []error {
	return e
}

// Keys returns the keys of the Keyed errors in e, in order.
func (e InvalidInput) Keys() []string {
	keys := make([]string, 0, len(e))
	for _, err := range e {
		var keyed Keyed
		if errors.As(err, &keyed) {
			keys = append(keys, keyed.Key)
		}
	}
	return keys
}
