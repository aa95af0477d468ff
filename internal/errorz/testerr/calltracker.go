package testerr

import "fmt"

// Calltracker counts calls to a dependency and decides which of them fail.
// The zero value never fails.
type Calltracker struct {
	CallIndex         int
	ShouldFail        bool
	Err               error
	FailAllAfterIndex bool
	FailAtIndex       int
}

// NewFailingDeps returns two trackers for every call index below expectCalls:
// one that fails only that call, and one that fails that call and every
// call after it.
func NewFailingDeps(err error, expectCalls int) []Calltracker {
	trackers := make([]Calltracker, 0, expectCalls*2)
	for i := range expectCalls {
		for _, failAfter := range []bool{true, false} {
			trackers = append(trackers, Calltracker{
				CallIndex:         -1,
				ShouldFail:        true,
				Err:               err,
				FailAllAfterIndex: failAfter,
				FailAtIndex:       i,
			})
		}
	}

	return trackers
}

// String describes the failure scenario, handy for subtest names.
func (ct *Calltracker) String() string {
	switch {
	case !ct.ShouldFail:
		return "never fails"
	case ct.FailAllAfterIndex:
		return fmt.Sprintf("fails from call %d", ct.FailAtIndex)
	default:
		return fmt.Sprintf("fails call %d", ct.FailAtIndex)
	}
}

// next registers a call and reports the error it should fail with, if any.
func (ct *Calltracker) next() error {
	if !ct.ShouldFail {
		return nil
	}

	ct.CallIndex++
	if ct.CallIndex == ct.FailAtIndex || (ct.FailAllAfterIndex && ct.CallIndex > ct.FailAtIndex) {
		return ct.Err
	}

	return nil
}

// MaybeFailErrFunc calls f unless the tracker decides this call fails.
func MaybeFailErrFunc(ct *Calltracker, f func() error) error {
	if err := ct.next(); err != nil {
		return err
	}

	return f()
}

// MaybeFail calls f unless the tracker decides this call fails.
func MaybeFail[T any](ct *Calltracker, f func() (T, error)) (T, error) {
	if err := ct.next(); err != nil {
		var zero T
		return zero, err
	}

	return f()
}
