package utils

import "errors"

// ----------------- storage ------------------
var (
	ErrStorageEmptyHostName       = errors.New("host name is empty")
	ErrStorageInvalidPortNumber   = errors.New("port number is empty")
	ErrStorageEmptyUsername       = errors.New("username is empty")
	ErrStorageEmptyPassword       = errors.New("password is empty")
	ErrStorageInvalidDatabaseName = errors.New("database name is empty")
	ErrStorageInvalidSslMode      = errors.New("SSL mode is invalid")
	ErrStorageInvalidPoolSize     = errors.New("pool size is invalid")
	ErrStorageInvalidTimeout      = errors.New("timeout is invalid")
)

// ----------------- orders ------------------
var (
	ErrOrderAlreadyExists = errors.New("order with this external id already exists")
	ErrOrderNotFound      = errors.New("order not found")
)

// ----------------- import ------------------
var (
	ErrInvalidWindow = errors.New("window start is after window end")
	ErrRunInProgress = errors.New("import run is already in progress")
	ErrNoImportRuns  = errors.New("no import runs yet")
)
