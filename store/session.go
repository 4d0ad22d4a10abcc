package store

// SessionRecord is the persisted form of a learning session. The session
// payload (history, mastery estimate, open question) is serialized JSON owned
// by the agent layer; the store only indexes it.
type SessionRecord struct {
	ID int32

	// Standard fields
	UID       string
	CreatedTs int64
	UpdatedTs int64

	// Domain specific fields
	State   string
	Topic   string
	Payload []byte
}

// FindSessionRecord is the find criteria for session records.
type FindSessionRecord struct {
	UID   *string
	State *string

	Limit *int
}

// DeleteSessionRecord is the delete criteria for session records.
type DeleteSessionRecord struct {
	UID *string
	// UpdatedBefore deletes sessions last touched before the given unix timestamp.
	UpdatedBefore *int64
}
