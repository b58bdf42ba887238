/*
Package extract holds one extractor per entity type. Every extractor
answers the same two core queries against the relational source --
"rows changed since X, capped at N" and "currently-live primary ids" --
and projects matching rows into the model.* document shape the Loader
writes verbatim.

Dynamic dispatch over entity type is intentionally NOT a switch on a
string entity name. Instead each entity is a value satisfying Extractor,
and the Sync Engine is generic over that contract.
*/
package extract

import (
	"context"
	"time"
)

// Doc is one extracted row, already projected into its target document
// shape (Body), tagged with the primary id and modification marker the
// Sync Engine needs to order writes and advance the checkpoint.
type Doc struct {
	ID     int
	Marker time.Time
	Body   any
}

// Extractor is the per-entity contract every Sync Engine pass drives.
type Extractor interface {
	// Entity names this extractor for logging, checkpoints and sync logs.
	Entity() string

	// ChangedPage returns up to batchSize rows ordered ascending by
	// modification marker then by primary key, matching rows where
	// marker > since, OR marker == since AND id > afterID. The
	// (since, afterID) pair is the compound cursor stored in the
	// checkpoint's (LastSyncTime, LastRecordID) fields -- it is what
	// makes the tie-break exact: a page that ends mid-way
	// through a group of rows sharing one marker can always be resumed
	// with the same since and a higher afterID, so no row sharing a
	// marker with the page boundary is ever skipped. The caller
	// (sync.Engine) detects "more available" by whether
	// len(result) == batchSize.
	ChangedPage(ctx context.Context, since time.Time, afterID, batchSize int) ([]Doc, error)

	// LiveIDs returns the primary ids the source currently considers
	// non-deleted. Invoked once per pass, not per batch -- may be
	// expensive.
	LiveIDs(ctx context.Context) (map[int]bool, error)
}

// SoftDeleteLister is implemented only by entities with an explicit
// soft-delete flag that the deletion sweep must catch independently of
// LiveIDs, such as the transactions deletion sweep. Most entities do
// not implement this -- their soft-deletes fall out of LiveIDs naturally
// because LiveIDs already excludes IsActive=false rows.
type SoftDeleteLister interface {
	// SoftDeletedSince returns ids soft-deleted with a modification
	// marker greater than since.
	SoftDeletedSince(ctx context.Context, since time.Time) ([]int, error)
}
