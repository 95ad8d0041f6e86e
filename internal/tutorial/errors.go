package tutorial

import "errors"

var (
	// ErrEmptyProblem is returned when a session is started without a problem
	// statement.
	ErrEmptyProblem = errors.New("problem statement is empty")
	// ErrSessionActive is returned by Start and Stuck while a session is in
	// progress.
	ErrSessionActive = errors.New("tutorial session already in progress")
	// ErrNoSession is returned by actions that need an active session.
	ErrNoSession = errors.New("no active tutorial session")
	// ErrNoStep is returned by hint requests before a step has loaded.
	ErrNoStep = errors.New("no step loaded")
	// ErrTutorialComplete is returned by Next once the last step was reached.
	ErrTutorialComplete = errors.New("tutorial already complete")
	// ErrInvalidMaxSteps is returned for a step limit below one.
	ErrInvalidMaxSteps = errors.New("max steps must be at least 1")
	// ErrSessionClosed is returned by Session methods after Close.
	ErrSessionClosed = errors.New("tutorial session closed")
	// ErrMailboxFull is returned when the session cannot accept another
	// command.
	ErrMailboxFull = errors.New("tutorial session busy")
	// ErrInvalidMode is returned when a request names an unknown mode.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidStep is returned when a request carries a bad step number.
	ErrInvalidStep = errors.New("invalid step")
)
