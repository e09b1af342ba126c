package profile

import "context"

// Store is the durable keyed storage for profile records. Implementations
// are not access-control aware; the access gate filters what leaves the
// service boundary.
type Store interface {
	Insert(ctx context.Context, p *Profile) error
	Get(ctx context.Context, id string) (*Profile, error)
	GetByOwner(ctx context.Context, ownerID string) (*Profile, error)

	// Update shallow-merges the patch into the stored record and returns
	// the updated record.
	Update(ctx context.Context, id string, patch Patch) (*Profile, error)

	// AppendDocument atomically appends one DocumentRef to the record's
	// document list. Concurrent appends must not lose entries.
	AppendDocument(ctx context.Context, id string, ref DocumentRef) (*Profile, error)
}
