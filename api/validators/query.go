package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
)

// QueryID reads a required positive id from the query string.
func QueryID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get(key)), 10, 64)
	if err != nil || id <= 0 {
		return 0, InvalidField(key)
	}
	return id, nil
}

// QueryLimit reads the optional "limit" parameter, which must lie in [1, max].
func QueryLimit(r *http.Request, def, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "limit out of range").
			WithDetails(map[string]any{"field": "limit", "min": 1, "max": max})
	}
	return limit, nil
}

// InvalidField reports a missing or malformed request field.
func InvalidField(field string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid or missing field").WithDetails(map[string]any{"field": field})
}
