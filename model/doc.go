/*
Package model defines the target document shapes written by the Loader.

PURPOSE:
  These are the documents as they exist in the secondary document store,
  not the relational rows they are projected from. Every type here
  follows the same invariant shape: `_id` equals the primary key, a
  redundant named key field is kept for caller convenience, and a
  SyncedAt timestamp records when the Loader wrote the document.

MONEY AND TIME:
  Monetary fields use decimal.Decimal (never float64) so that replication
  never introduces binary-float rounding the source database doesn't have.
  All timestamps are stored in UTC.

SEE ALSO:
  - extract/: projects source rows into these shapes
  - target/: writes these shapes via keyed upsert/delete
*/
package model

import "time"

// SyncStamped is implemented by every document type. The Sync Engine
// calls SetSyncedAt immediately before a write so SyncedAt always
// reflects when the Loader wrote the document, not when the extractor
// read it. The value receiver returns a modified copy rather than
// mutating in place, since Doc.Body is passed around by value.
type SyncStamped interface {
	SetSyncedAt(t time.Time) any
}
