package errors

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// DatabaseErrorType represents the type of database error.
type DatabaseErrorType int

const (
	// ErrorTypeUnknown represents an unknown database error.
	ErrorTypeUnknown DatabaseErrorType = iota
	// ErrorTypeDuplicateKey represents a duplicate key constraint violation (MySQL 1062).
	ErrorTypeDuplicateKey
	// ErrorTypeDataTooLong represents a data too long error (MySQL 1406).
	ErrorTypeDataTooLong
	// ErrorTypeNotFound represents a record not found error.
	ErrorTypeNotFound
	// ErrorTypeDeadlock represents a deadlock error (MySQL 1213).
	ErrorTypeDeadlock
	// ErrorTypeConnectionError represents a database connection error.
	ErrorTypeConnectionError
	// ErrorTypeInvalidValue represents an invalid value error.
	ErrorTypeInvalidValue
	// ErrorTypeMissingTable represents a missing table (MySQL 1146), usually an unmigrated schema.
	ErrorTypeMissingTable
)

var databaseErrorTypeNames = map[DatabaseErrorType]string{
	ErrorTypeUnknown:         "unknown",
	ErrorTypeDuplicateKey:    "duplicate_key",
	ErrorTypeDataTooLong:     "data_too_long",
	ErrorTypeNotFound:        "not_found",
	ErrorTypeDeadlock:        "deadlock",
	ErrorTypeConnectionError: "connection",
	ErrorTypeInvalidValue:    "invalid_value",
	ErrorTypeMissingTable:    "missing_table",
}

// String returns the log label of the error type.
func (t DatabaseErrorType) String() string {
	if name, ok := databaseErrorTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// DatabaseError wraps a database error with classification information.
type DatabaseError struct {
	Type         DatabaseErrorType
	OriginalErr  error
	MySQLErrCode uint16 // MySQL error code (e.g., 1062, 1406)
	Message      string
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if e.MySQLErrCode > 0 {
		return fmt.Sprintf("%s (MySQL error %d): %v", e.Message, e.MySQLErrCode, e.OriginalErr)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

// Retryable reports whether writing again may succeed.
func (e *DatabaseError) Retryable() bool {
	return e != nil && (e.Type == ErrorTypeDeadlock || e.Type == ErrorTypeConnectionError)
}

// ClassifyDBError classifies a database error into a specific error type.
//
// It handles GORM errors and MySQL-specific errors:
//   - ErrRecordNotFound → ErrorTypeNotFound
//   - MySQL 1062 (Duplicate entry) → ErrorTypeDuplicateKey
//   - MySQL 1406 (Data too long) → ErrorTypeDataTooLong
//   - MySQL 1213 (Deadlock) → ErrorTypeDeadlock
//   - MySQL 1146 (Table doesn't exist) → ErrorTypeMissingTable
//   - Connection errors → ErrorTypeConnectionError
func ClassifyDBError(err error) *DatabaseError {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &DatabaseError{
			Type:        ErrorTypeNotFound,
			OriginalErr: err,
			Message:     "record not found",
		}
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return classifyMySQLError(mysqlErr)
	}

	if Classify(err) == KindConnection || Classify(err) == KindTimeout {
		return &DatabaseError{
			Type:        ErrorTypeConnectionError,
			OriginalErr: err,
			Message:     "database connection error",
		}
	}

	return &DatabaseError{
		Type:        ErrorTypeUnknown,
		OriginalErr: err,
		Message:     "unknown database error",
	}
}

// classifyMySQLError classifies a MySQL-specific error.
func classifyMySQLError(err *mysql.MySQLError) *DatabaseError {
	dbErr := &DatabaseError{
		Type:         ErrorTypeUnknown,
		OriginalErr:  err,
		MySQLErrCode: err.Number,
		Message:      "MySQL error",
	}

	switch err.Number {
	case 1062: // ER_DUP_ENTRY
		dbErr.Type, dbErr.Message = ErrorTypeDuplicateKey, "duplicate key constraint violation"
	case 1406: // ER_DATA_TOO_LONG
		dbErr.Type, dbErr.Message = ErrorTypeDataTooLong, "data too long for column"
	case 1213: // ER_LOCK_DEADLOCK
		dbErr.Type, dbErr.Message = ErrorTypeDeadlock, "deadlock detected"
	case 1146: // ER_NO_SUCH_TABLE
		dbErr.Type, dbErr.Message = ErrorTypeMissingTable, "table does not exist"
	case 1048: // ER_BAD_NULL_ERROR
		dbErr.Type, dbErr.Message = ErrorTypeInvalidValue, "column cannot be null"
	case 1265, 1366: // ER_WARN_DATA_TRUNCATED, ER_TRUNCATED_WRONG_VALUE
		dbErr.Type, dbErr.Message = ErrorTypeInvalidValue, "invalid or truncated value"
	}

	return dbErr
}

// IsDuplicateKeyError checks if the error is a duplicate key constraint violation.
func IsDuplicateKeyError(err error) bool {
	dbErr := ClassifyDBError(err)
	return dbErr != nil && dbErr.Type == ErrorTypeDuplicateKey
}
