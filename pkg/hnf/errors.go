package hnf

import "errors"

// Fatal decode errors abort validation before a report exists.
var (
	ErrMalformedHeader     = errors.New("malformed HNF header")
	ErrMalformedBlockTable = errors.New("malformed HNF block table")
)

// Payload errors are recorded as report findings.
var (
	ErrManifestUnreadable = errors.New("HNF manifest unreadable")
	ErrManifestMalformed  = errors.New("HNF manifest malformed")
	ErrHintsUnreadable    = errors.New("HNF execution hints unreadable")
	ErrHintsMalformed     = errors.New("HNF execution hints malformed")
)
