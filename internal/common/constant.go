// Package common contains shared constants and sentinel errors used across
// BugSheriff components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// AdminUserName is the only username that is granted the admin role at
// registration.
const AdminUserName = "admin"

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Program lifecycle statuses.
const (
	ProgramStatusOpen   = "Open"
	ProgramStatusClosed = "Closed"
)

// Report review statuses.
const (
	ReportStatusPending  = "Pending"
	ReportStatusAccepted = "Accepted"
	ReportStatusRejected = "Rejected"
)

// Column limits, counted in characters.
const (
	MaxIBANLength        = 34
	MaxUsernameLength    = 256
	MaxSecretLength      = 256
	MaxProgramNameLength = 256
)

// ReportFileExtension is the only accepted upload extension.
const ReportFileExtension = ".pdf"
