package orm

import (
	"errors"

	"gorm.io/dynform/logger"
)

var (
	// ErrRecordNotFound record not found error
	ErrRecordNotFound = logger.ErrRecordNotFound
	// ErrPrimaryKeyRequired primary keys required
	ErrPrimaryKeyRequired = errors.New("primary key required")
	// ErrModelValueRequired model value required
	ErrModelValueRequired = errors.New("model value required")
	// ErrInvalidValue invalid value, should be pointer to struct or slice
	ErrInvalidValue = errors.New("invalid value, should be pointer to struct or slice")
	// ErrInvalidField invalid field
	ErrInvalidField = errors.New("invalid field")
	// ErrUnsupportedRelation unsupported relations
	ErrUnsupportedRelation = errors.New("unsupported relations")
	// ErrInvalidTransaction invalid transaction, e.g. writing from a read-only one
	ErrInvalidTransaction = errors.New("invalid transaction")
)
