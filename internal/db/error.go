package db

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// DuplicateKeyError is an error type for duplicate key errors
type DuplicateKeyError struct {
	Key     string
	Message string
}

func (e *DuplicateKeyError) Error() string {
	return e.Message
}

func IsDuplicateKeyError(err error) bool {
	var target *DuplicateKeyError
	return errors.As(err, &target)
}

// Not found Error
type NotFoundError struct {
	Key     string
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// StaleNonceError is returned when a signer already used a nonce at least as high
type StaleNonceError struct {
	Signer string
	Nonce  uint64
}

func (e *StaleNonceError) Error() string {
	return fmt.Sprintf("nonce %d of %s is not above the last accepted nonce", e.Nonce, e.Signer)
}

func IsStaleNonceError(err error) bool {
	var target *StaleNonceError
	return errors.As(err, &target)
}

// TransientError marks a transaction that was rolled back because of a
// concurrent writer. Nothing it wrote was kept, so it can be resubmitted.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient transaction error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func IsTransientError(err error) bool {
	var target *TransientError
	return errors.As(err, &target)
}

const (
	transientTransactionLabel = "TransientTransactionError"
	unknownCommitResultLabel  = "UnknownTransactionCommitResult"
)

func hasErrorLabel(err error, label string) bool {
	var serverErr mongo.ServerError
	if !errors.As(err, &serverErr) {
		return false
	}
	return serverErr.HasErrorLabel(label)
}

// hasTransientLabel reports whether mongo aborted the transaction and it is
// safe to run it again. An unknown commit result is not transient: the
// commit may have been applied.
func hasTransientLabel(err error) bool {
	return hasErrorLabel(err, transientTransactionLabel)
}

func duplicateKeyOr(err error, key, message string) error {
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, e := range writeErr.WriteErrors {
			if mongo.IsDuplicateKeyError(e) {
				return &DuplicateKeyError{
					Key:     key,
					Message: message,
				}
			}
		}
	}
	return err
}
