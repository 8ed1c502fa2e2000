package engine

import (
	"errors"
	"fmt"
)

// ErrMalformedSession is matched by every MalformedSessionError.
var ErrMalformedSession = errors.New("malformed session")

// MalformedSessionError reports a session missing a required field.
type MalformedSessionError struct {
	SessionID SessionID
	Stage     string
	Field     string
}

func (e *MalformedSessionError) Error() string {
	id := e.SessionID.String()
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("%s: malformed session %s: missing %s", e.Stage, id, e.Field)
}

func (e *MalformedSessionError) Is(target error) bool {
	return target == ErrMalformedSession
}
