package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/porthealth/porthealth/internal/errorz"
	"github.com/porthealth/porthealth/internal/onboarding"
)

// mapper is a generic HTTP handler that maps a request to a form,
// submits it to the session of the device and writes the transition
// to the response.
type mapper[IN any] struct {
	s      *Server
	req    func(*http.Request) (IN, error)
	target func(context.Context, *onboarding.Session, IN) onboarding.Transition
}

// mapSubmit creates a HTTP Handler that:
// 1. Maps the request form to a value of type IN.
// 2. Submits that value to the onboarding session of the device.
// 3. Writes the resulting transition to the response.
//
// Errors are written using the server error handler.
func mapSubmit[IN any](s *Server, target func(context.Context, *onboarding.Session, IN) onboarding.Transition) *mapper[IN] {
	return &mapper[IN]{
		s: s,
		req: func(r *http.Request) (IN, error) {
			return defaultRequest[IN](s, r)
		},
		target: target,
	}
}

func (m *mapper[IN]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flow, err := flowFromCtx(r.Context())
	if err != nil {
		m.s.handleError(w, r, err)
		return
	}

	in, err := m.req(r)
	if err != nil {
		m.s.handleError(w, r, err)
		return
	}

	t := m.target(r.Context(), flow.session, in)

	err = m.s.writeTransition(w, flow, t)
	if err != nil {
		m.s.handleError(w, r, err)
		return
	}
}

// defaultRequest is the default way to map a request to a struct.
func defaultRequest[IN any](s *Server, r *http.Request) (IN, error) {
	var in IN
	err := r.ParseForm()
	if err != nil {
		return in, errorz.InvalidInput{err}
	}

	err = s.decoder.Decode(&in, r.PostForm)
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

// transitionStatus returns the HTTP status code for t.
func transitionStatus(t onboarding.Transition) int {
	switch t.Reason {
	case onboarding.ReasonNone:
		return http.StatusOK
	case onboarding.ReasonNotAllowed:
		return http.StatusConflict
	case onboarding.ReasonStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}
