package sqlite

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gradebook/internal/errs"
)

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// timeDest scans a TEXT timestamp into t. NULL scans as the zero time.
type timeDest struct{ t *time.Time }

func (d timeDest) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d.t = time.Time{}
		return nil
	case time.Time:
		*d.t = v.UTC()
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into time", src)
	}
}

func (d timeDest) parse(s string) error {
	t, err := parseTime(s)
	if err != nil {
		return err
	}
	*d.t = t
	return nil
}

// optString scans a nullable TEXT column; NULL becomes "".
type optString struct{ s *string }

func (d optString) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d.s = ""
	case string:
		*d.s = v
	case []byte:
		*d.s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into string", src)
	}
	return nil
}

// nullable maps "" to NULL for optional foreign keys.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func qualify(prefix string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + c
	}
	return strings.Join(out, ", ")
}

// translate maps constraint failures reported by the engine onto typed
// errors. Other errors are wrapped with op and entity.
func translate(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	var typed *errs.Error
	if errors.As(err, &typed) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return errs.Conflict(op, entity, id, "already exists")
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return errs.Validation(entity, "", "references a missing parent")
	}
	return fmt.Errorf("%s %s: %w", op, entity, err)
}
