package types

// Status is a type for the lifecycle status of a resource in the database.
// This is used to soft-delete records and to determine if they should be
// included in queries. Any changes to this type should be reflected in the
// database schema by running migrations.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)
