package types

import "errors"

// Configuration errors. These are fatal at startup.
var (
	ErrInvalidSchema = errors.New("invalid schema descriptor")
	ErrNotRegistered = errors.New("model not registered")
	ErrUnknownColumn = errors.New("unknown column")
)

// Broker errors.
var (
	ErrConstraint   = errors.New("constraint violation")
	ErrNoPrimaryKey = errors.New("primary key is not set")
	ErrMultipleRows = errors.New("criteria matched more than one row")
)

// Migration errors. A store that fails to migrate must not be used.
var (
	ErrMigration = errors.New("schema migration failed")
	ErrDowngrade = errors.New("store schema is newer than this build")
)

// Store lifecycle and I/O errors.
var (
	ErrStoreClosed    = errors.New("store is closed")
	ErrNoStore        = errors.New("store file does not exist")
	ErrAlreadyRunning = errors.New("a bulk operation is already running")
)

// Entity errors.
var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidISBN = errors.New("invalid ISBN")
	ErrInvalidName = errors.New("invalid name")
)
