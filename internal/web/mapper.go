package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/willemschots/gatekeeper/internal/errorz"
)

// shared holds what every step of a mapper has access to.
type shared struct {
	w http.ResponseWriter
	r *http.Request
}

// result is the result of a succesful call to the target func.
// It contains all relevant data because we can't know
// in advance what we will need to construct a response.
type result[IN, OUT any] struct {
	shared
	in  IN
	out OUT
}

// mapper is a generic HTTP handler that maps requests to target
// function calls and writes the output to the response.
type mapper[IN, OUT any] struct {
	reqToInFunc func(shared) (IN, error)
	targetFunc  func(context.Context, IN) (OUT, error)
	successFunc func(result[IN, OUT]) error
	failFunc    func(shared, error)
}

// newHandler creates a HTTP Handler that:
// 1. Maps the request form to a value of input type IN.
// 2. Calls the target func with that value.
// 3. Writes the output of type OUT as JSON with status 200.
//
// Errors are written using the server error handler.
func newHandler[IN, OUT any](srv *Server, targetFunc func(context.Context, IN) (OUT, error)) *mapper[IN, OUT] {
	return &mapper[IN, OUT]{
		reqToInFunc: func(s shared) (IN, error) {
			return defaultReqToIn[IN](srv, s)
		},
		targetFunc: targetFunc,
		successFunc: func(res result[IN, OUT]) error {
			return writeJSON(res.w, http.StatusOK, res.out)
		},
		failFunc: func(s shared, err error) {
			srv.handleError(s.w, s.r, err)
		},
	}
}

// newInputHandler creates a HTTP Handler that:
// 1. Maps the request form to a value of type IN.
// 2. Calls the target func with that value.
// 3. Writes an empty status 200 response if the target func was successful.
//
// Errors are written using the server error handler.
func newInputHandler[IN any](srv *Server, targetFunc func(context.Context, IN) error) *mapper[IN, struct{}] {
	return &mapper[IN, struct{}]{
		reqToInFunc: func(s shared) (IN, error) {
			return defaultReqToIn[IN](srv, s)
		},
		targetFunc: func(ctx context.Context, in IN) (struct{}, error) {
			return struct{}{}, targetFunc(ctx, in)
		},
		successFunc: func(res result[IN, struct{}]) error {
			res.w.WriteHeader(http.StatusOK)
			return nil
		},
		failFunc: func(s shared, err error) {
			srv.handleError(s.w, s.r, err)
		},
	}
}

// newOutputHandler creates a HTTP Handler that:
// 1. Calls the target func.
// 2. Writes the output of type OUT as JSON with status 200.
//
// Errors are written using the server error handler.
func newOutputHandler[OUT any](srv *Server, targetFunc func(context.Context) (OUT, error)) *mapper[struct{}, OUT] {
	return &mapper[struct{}, OUT]{
		reqToInFunc: func(shared) (struct{}, error) {
			return struct{}{}, nil
		},
		targetFunc: func(ctx context.Context, _ struct{}) (OUT, error) {
			return targetFunc(ctx)
		},
		successFunc: func(res result[struct{}, OUT]) error {
			return writeJSON(res.w, http.StatusOK, res.out)
		},
		failFunc: func(s shared, err error) {
			srv.handleError(s.w, s.r, err)
		},
	}
}

// onSuccess overwrites the function that writes the output to the response.
func (m *mapper[IN, OUT]) onSuccess(fn func(result[IN, OUT]) error) *mapper[IN, OUT] {
	m.successFunc = fn
	return m
}

// onFail overwrites the function that handles errors.
func (m *mapper[IN, OUT]) onFail(fn func(shared, error)) *mapper[IN, OUT] {
	m.failFunc = fn
	return m
}

func (m *mapper[IN, OUT]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s := shared{w: w, r: r}

	in, err := m.reqToInFunc(s)
	if err != nil {
		m.failFunc(s, err)
		return
	}

	out, err := m.targetFunc(r.Context(), in)
	if err != nil {
		m.failFunc(s, err)
		return
	}

	err = m.successFunc(result[IN, OUT]{
		shared: s,
		in:     in,
		out:    out,
	})
	if err != nil {
		m.failFunc(s, err)
		return
	}
}

// defaultReqToIn is the default way to map a request to a struct.
func defaultReqToIn[IN any](srv *Server, s shared) (IN, error) {
	var in IN
	err := s.r.ParseForm()
	if err != nil {
		return in, errorz.InvalidInput{errorz.Keyed{Key: "form", Err: err}}
	}

	err = srv.decoder.Decode(&in, s.r.Form)
	return in, decodeError(err)
}

func decodeError(err error) error {
	if err == nil {
		return nil
	}

	var multiErr schema.MultiError
	if errors.As(err, &multiErr) {
		var invalidInput errorz.InvalidInput
		for key, e := range multiErr {
			invalidInput = append(invalidInput, errorz.Keyed{
				Key: key,
				Err: e,
			})
		}

		return invalidInput
	}

	return err
}
