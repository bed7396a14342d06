package domain

import "errors"

var (
	// ErrSensorUnavailable indicates the sensor source has no light sensor
	ErrSensorUnavailable = errors.New("light sensor not available")

	// ErrStorageUnavailable indicates the storage root is missing or read-only
	ErrStorageUnavailable = errors.New("storage is not mounted or not writable")

	// ErrDirectoryCreateFailed indicates the log directory could not be created
	ErrDirectoryCreateFailed = errors.New("unable to create log directory")

	// ErrWriteFailed indicates a single reading could not be persisted
	ErrWriteFailed = errors.New("failed to write reading")

	// ErrLoggerAlreadyOpen indicates Open was called twice
	ErrLoggerAlreadyOpen = errors.New("reading log already open")

	// ErrLoggerNotOpen indicates an append was attempted before Open
	ErrLoggerNotOpen = errors.New("reading log not open")

	// ErrMalformedLine indicates a log line does not have the expected shape
	ErrMalformedLine = errors.New("malformed reading line")

	// ErrSessionNotFound indicates requested session doesn't exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidRange indicates a malformed session query window
	ErrInvalidRange = errors.New("invalid session range")
)
