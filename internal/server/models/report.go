package models

// Report is a submitted PDF together with its review state.
//
// ProgramName and OwnerIBAN are only populated by the joined list queries.
type Report struct {
	ID           int64
	UserID       int64
	ProgramID    int64
	BlobName     string
	Status       string
	RewardAmount float64

	ProgramName string
	OwnerIBAN   string
}
