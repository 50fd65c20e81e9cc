package contract

import "errors"

var (
	ErrDecisionUnavailable = errors.New("decision provider unavailable")
	ErrNoDecision          = errors.New("no action could be determined")
)
