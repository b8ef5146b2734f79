package searchsync

import (
	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/usecase/dispatch"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound      = domain.ErrNotFound
	ErrModelNotFound = domain.ErrModelNotFound
	ErrInvalidFilter = domain.ErrInvalidFilter
	ErrInvalidPage   = domain.ErrInvalidPage
	ErrUnknownDriver = domain.ErrUnknownDriver
	ErrNotSupported  = domain.ErrNotSupported
	ErrPredicate     = domain.ErrPredicate
	ErrTxDone        = dispatch.ErrTxDone
)
