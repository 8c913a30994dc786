package domain

import "errors"

// prompts document
var (
	ErrNotFound       = errors.New("document not found")
	ErrDecode         = errors.New("document is not valid utf-8 text")
	ErrMissingSection = errors.New("section not found")
)

var (
	ErrSinkCreation = errors.New("log file sink creation failed")
	ErrRemoteCall   = errors.New("remote call failed")
)

var (
	ErrEmptyQuery      = errors.New("empty query")
	ErrNoStocks        = errors.New("no stocks to analyze")
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrUnknownMode     = errors.New("unknown agent mode")
)

var (
	ErrRunNotFound = errors.New("run not found")
)
