package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind discriminates storage-layer failures so callers can branch on them
// without inspecting messages.
type Kind string

const (
	KindNotInitialized      Kind = "not_initialized"
	KindNotFound            Kind = "not_found"
	KindValidation          Kind = "validation"
	KindConflict            Kind = "conflict"
	KindBackendConstruction Kind = "backend_construction"
	KindMigration           Kind = "migration"
	KindPersistence         Kind = "persistence"
	KindInternal            Kind = "internal"
)

// Error is the typed error returned across component boundaries.
type Error struct {
	Kind   Kind
	Op     string
	Entity string
	ID     string
	Field  string
	Msg    string
	Err    error
}

// Sentinels usable with errors.Is; they match any *Error of the same kind.
var (
	ErrNotInitialized      = &Error{Kind: KindNotInitialized, Msg: "storage not initialized"}
	ErrNotFound            = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrValidation          = &Error{Kind: KindValidation, Msg: "validation failed"}
	ErrConflict            = &Error{Kind: KindConflict, Msg: "conflict"}
	ErrBackendConstruction = &Error{Kind: KindBackendConstruction, Msg: "backend construction failed"}
	ErrMigration           = &Error{Kind: KindMigration, Msg: "migration failed"}
	ErrPersistence         = &Error{Kind: KindPersistence, Msg: "write not persisted"}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Entity != "" && e.ID != "":
		fmt.Fprintf(&b, "%s %s: ", e.Entity, e.ID)
	case e.Entity != "":
		fmt.Fprintf(&b, "%s: ", e.Entity)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "%s: ", e.Field)
	}
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	b.WriteString(msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so that errors.Is(err, ErrNotFound) holds for
// every not-found error regardless of entity or id.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func NotFound(op, entity, id string) error {
	return &Error{Kind: KindNotFound, Op: op, Entity: entity, ID: id, Msg: "not found"}
}

func Validation(entity, field, msg string) error {
	return &Error{Kind: KindValidation, Entity: entity, Field: field, Msg: msg}
}

func Conflict(op, entity, id, msg string) error {
	return &Error{Kind: KindConflict, Op: op, Entity: entity, ID: id, Msg: msg}
}

func NotInitialized(op string) error {
	return &Error{Kind: KindNotInitialized, Op: op, Msg: "storage not initialized"}
}

func BackendConstruction(target string, err error) error {
	return &Error{Kind: KindBackendConstruction, Op: "initialize storage", Entity: target, Msg: "backend construction failed", Err: err}
}

func Migration(name string, err error) error {
	return &Error{Kind: KindMigration, Op: "migrate", Entity: name, Msg: "migration failed", Err: err}
}

// Persistence reports a write that reached the working copy but could not
// be saved to durable storage. Retrying the write would apply it twice.
func Persistence(op, entity, id string, err error) error {
	return &Error{Kind: KindPersistence, Op: op, Entity: entity, ID: id, Msg: "write not persisted", Err: err}
}
