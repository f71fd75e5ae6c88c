package ds

import "context"

// BatchCatalog is the forwarding-batch side of the portal.
type BatchCatalog interface {
	ListBatches(ctx context.Context) ([]*Batch, error)
	AddToBatch(ctx context.Context, mailingID, batchID string) error
}

// Catalog is everything the tool needs from the portal once logged in.
type Catalog interface {
	ArtifactSource
	BatchCatalog
	// List returns the mailings matching filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*Mailing, error)
}
