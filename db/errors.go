package db

import "fmt"

// Common errors
var (
	ErrNoCheckpoint       = fmt.Errorf("no last-run checkpoint found")
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrDatabaseConnection = fmt.Errorf("database connection error")
	ErrTransactionFailed  = fmt.Errorf("transaction failed")
)
