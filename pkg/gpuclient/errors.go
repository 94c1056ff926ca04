// Package gpuclient talks to the GPU worker over HTTP: a health probe and
// the two-phase submit/poll transcription protocol, including backward
// compatibility with a legacy worker that answers synchronously.
package gpuclient

import "errors"

// Error taxonomy surfaced on TranscriptionResult.Error / job.Error. These
// are sentinels wrapped with context via fmt.Errorf("%w: ...") so callers
// can classify a failure with errors.Is while still getting a readable
// message.
var (
	// ErrUnreachable means POST /transcribe got no HTTP response at all
	// (connection refused, timeout, DNS failure).
	ErrUnreachable = errors.New("gpu worker unreachable")
	// ErrSubmitRejected means the worker answered POST /transcribe with
	// neither 202 nor 200.
	ErrSubmitRejected = errors.New("gpu worker rejected submission")
	// ErrAuthFailure means the worker answered 401/403; no retry follows.
	ErrAuthFailure = errors.New("gpu worker authentication failed")
	// ErrWorkerLost means a poll returned 404: the worker restarted
	// mid-job and no longer knows about it.
	ErrWorkerLost = errors.New("worker lost track of job (possible restart)")
	// ErrWorkerTimeout means the poll deadline elapsed before a terminal
	// status was observed.
	ErrWorkerTimeout = errors.New("timeout waiting for worker result")
)
