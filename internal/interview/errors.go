package interview

import "errors"

var (
	ErrNoQuestions      = errors.New("no questions available")
	ErrEmptyAnswer      = errors.New("answer is empty")
	ErrNotInProgress    = errors.New("session is not in progress")
	ErrSessionFinished  = errors.New("session is already finished")
	ErrStaleQuestion    = errors.New("question is no longer current")
	ErrOutOfOrder       = errors.New("response recorded out of order")
	ErrControllerClosed = errors.New("session controller is closed")
)
