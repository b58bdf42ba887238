package sync

import "errors"

// Sentinel errors callers can match with errors.Is; everything else a
// pass produces is wrapped with fmt.Errorf and carries entity/run
// context inline instead of a dedicated type.
var (
	// ErrUnknownEntity is returned by RunPass/RunTransactionBackfill when
	// no Registration exists for the requested entity type.
	ErrUnknownEntity = errors.New("sync: no registration for entity")
)
