package sessions

import (
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const deviceIDKey = "deviceID"

type Session struct {
	base      *sessions.Session
	needsSave bool
}

func (s *Session) NeedsSave() bool {
	return s.needsSave
}

// DeviceID returns the identifier of the device the session belongs to.
func (s *Session) DeviceID() (uuid.UUID, bool) {
	raw, ok := s.base.Values[deviceIDKey].(string)
	if !ok {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}

	return id, true
}

func (s *Session) SetDeviceID(id uuid.UUID) {
	s.needsSave = true
	s.base.Values[deviceIDKey] = id.String()
}
