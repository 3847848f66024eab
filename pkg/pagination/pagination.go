// Package pagination implements keyset paging over rows ordered by
// (created_at, id).
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Params are the paging inputs of a list request.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the key of the last row of a page.
type Cursor struct {
	CreatedAt time.Time
	ID        int64
}

// PageSize clamps Limit to MaxLimit. Zero or negative means DefaultLimit.
func (p Params) PageSize() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	}
	return p.Limit
}

// After decodes the cursor. A blank cursor returns nil, meaning the first page.
func (p Params) After() (*Cursor, error) {
	value := strings.TrimSpace(p.Cursor)
	if value == "" {
		return nil, nil
	}
	cursor, err := decode(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]any{"field": "cursor"})
	}
	return cursor, nil
}

// String encodes the cursor for a client to send back.
func (c Cursor) String() string {
	payload := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + strconv.FormatInt(c.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// Page trims rows queried with a limit of size+1 to one page. The returned
// cursor is empty when there is no next page.
func Page[T any](rows []T, size int, key func(T) Cursor) ([]T, string) {
	if size <= 0 || len(rows) <= size {
		return rows, ""
	}
	rows = rows[:size]
	return rows, key(rows[size-1]).String()
}

func decode(value string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	stamp, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, errors.New("cursor has no id")
	}
	at, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, fmt.Errorf("cursor time: %w", err)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("cursor id %q", id)
	}
	return &Cursor{CreatedAt: at, ID: n}, nil
}
