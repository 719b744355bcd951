package models

import "time"

// OrphanedBlob is a stored file whose owning rows are gone but whose
// removal from the blob store failed. The sweeper retries it.
type OrphanedBlob struct {
	BlobName  string
	CreatedAt time.Time
	Attempts  int
	LastError string
}
