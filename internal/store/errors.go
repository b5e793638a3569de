package store

import "errors"

var (
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidServiceType  = errors.New("invalid service type")
	ErrQueueNumberConflict = errors.New("queue number conflict")
	ErrStoreBusy           = errors.New("store busy")
)
