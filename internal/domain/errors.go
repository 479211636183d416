package domain

import "errors"

// Error taxonomy shared by the retrieval core. Callers match with errors.Is;
// concrete errors wrap one of these with context.
var (
	// ErrInvalidConfiguration reports parameters that make no sense or would
	// not terminate, e.g. overlap >= chunk size.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrSourceNotFound reports a missing source document.
	ErrSourceNotFound = errors.New("source not found")
	// ErrSnapshotNotFound reports that no snapshot has been built at the
	// expected location.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrSnapshotMismatch reports a snapshot built with a different
	// embedding model or dimension than the one configured.
	ErrSnapshotMismatch = errors.New("snapshot mismatch")
	// ErrSnapshotCorrupt reports artifacts that exist but cannot be trusted.
	ErrSnapshotCorrupt = errors.New("snapshot corrupt")
	// ErrRetrieval reports a failure embedding or searching a query.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrAnswer reports a failure of the answering model.
	ErrAnswer = errors.New("answer failed")
)
