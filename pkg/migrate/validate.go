package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	upMarker         = "-- +goose Up"
	downMarker       = "-- +goose Down"
	statementBegin   = "-- +goose StatementBegin"
	statementEndMark = "-- +goose StatementEnd"
)

// ValidateDir checks migration filenames and goose annotations. An empty dir
// validates the migrations compiled into the binary. Every problem found is
// reported, not just the first.
func ValidateDir(dir string) error {
	fsys, root := source(dir)
	if fsys == nil {
		fsys, root = os.DirFS(dir), "."
	}
	return validateFS(fsys, root)
}

func validateFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", root, err)
	}

	var problems []error
	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			problems = append(problems, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, ok := seen[m[1]]; ok {
			problems = append(problems, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name))
		}
		seen[m[1]] = name

		b, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			problems = append(problems, fmt.Errorf("read file %q: %w", name, err))
			continue
		}
		problems = append(problems, checkAnnotations(name, string(b))...)
	}

	if len(seen) == 0 && len(problems) == 0 {
		return fmt.Errorf("no migrations found in %q", root)
	}
	return errors.Join(problems...)
}

func checkAnnotations(name, txt string) []error {
	var problems []error
	up := strings.Index(txt, upMarker)
	down := strings.Index(txt, downMarker)
	switch {
	case up < 0:
		problems = append(problems, fmt.Errorf("migration %q missing %q", name, upMarker))
	case down < 0:
		problems = append(problems, fmt.Errorf("migration %q missing %q", name, downMarker))
	case down < up:
		problems = append(problems, fmt.Errorf("migration %q has Down before Up", name))
	}
	if b, e := strings.Count(txt, statementBegin), strings.Count(txt, statementEndMark); b != e {
		problems = append(problems, fmt.Errorf("migration %q has %d StatementBegin but %d StatementEnd", name, b, e))
	}
	return problems
}
