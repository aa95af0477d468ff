package errorz

import (
	"errors"
	"slices"
	"strings"
)

// InvalidInput signals that user provided input was rejected. Every
// wrapped error describes one problem, preferably as a Keyed error.
type InvalidInput []error

func (e InvalidInput) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

func (e InvalidInput) Unwrap() []error {
	return e
}

// Keys returns the sorted and deduplicated keys of the wrapped Keyed errors.
func (e InvalidInput) Keys() []string {
	var keys []string
	for _, err := range e {
		var k Keyed
		if errors.As(err, &k) {
			keys = append(keys, k.Key)
		}
	}

	slices.Sort(keys)
	return slices.Compact(keys)
}

// Keyed ties an error to the input field (Key) that caused it.
type Keyed struct {
	Key string
	Err error
}

func (k Keyed) Error() string {
	return k.Key + ": " + k.Err.Error()
}

func (k Keyed) Unwrap() error {
	return k.Err
}
