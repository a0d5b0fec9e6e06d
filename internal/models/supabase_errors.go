package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Postgres error codes surfaced through PostgREST as "(CODE) message".
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	pgNoDataFound     = "P0002"
	pgInvalidText     = "22P02"
)

func hasPostgrestCode(err error, code string) bool {
	return err != nil && strings.Contains(err.Error(), "("+code+")")
}

// translatePostgrestError maps store-level codes onto the package's
// sentinel errors; notFound is used for P0002.
func translatePostgrestError(err error, notFound error, op string) error {
	switch {
	case err == nil:
		return nil
	case hasPostgrestCode(err, pgInvalidText):
		return ErrInvalidID
	case hasPostgrestCode(err, pgUniqueViolation):
		return ErrAlreadyBooked
	case hasPostgrestCode(err, pgCheckViolation):
		return ErrEventFull
	case hasPostgrestCode(err, pgNoDataFound) && notFound != nil:
		return notFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func decodeRows[T any](raw []byte, op string) ([]T, error) {
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%s: failed to unmarshal rows: %v", op, err)
	}
	return rows, nil
}

// rpcError is the body PostgREST returns when a function raises.
type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("(%s) %s", e.Code, e.Message)
}
