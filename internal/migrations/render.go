package migrations

import (
	"bytes"
	"fmt"
	"io/fs"
	"sort"
	"text/template"
	"time"

	"github.com/corefirst/authstore/internal/catalog"
)

// Rendered resolves the logical table names in the embedded migration files
// through the given catalog, so the DDL creates the same physical names the
// repositories query. The result is handed to goose in place of the raw
// embed.FS.
//
// Migration files are Go templates over two functions: "table" applies the
// catalog's schema and prefix, "prefixed" applies only the prefix (used for
// index names, which inherit their table's schema).
func Rendered(cat catalog.Catalog) (fs.FS, error) {
	funcs := template.FuncMap{
		"table":    cat.Table,
		"prefixed": cat.Prefixed,
	}

	names, err := fs.Glob(Migrations, "*.sql")
	if err != nil {
		return nil, err
	}

	rendered := renderedFS{}
	for _, name := range names {
		src, err := fs.ReadFile(Migrations, name)
		if err != nil {
			return nil, err
		}
		tmpl, err := template.New(name).Funcs(funcs).Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", name, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, nil); err != nil {
			return nil, fmt.Errorf("migration %s: %w", name, err)
		}
		rendered[name] = buf.Bytes()
	}
	return rendered, nil
}

// renderedFS serves the rendered migration files from memory. It implements
// the read-only subset of fs.FS that goose touches: Open of a named file and
// ReadDir of the root.
type renderedFS map[string][]byte

func (r renderedFS) Open(name string) (fs.File, error) {
	data, ok := r[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return &renderedFile{
		info:   renderedInfo{name: name, size: int64(len(data))},
		Reader: bytes.NewReader(data),
	}, nil
}

func (r renderedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name != "." {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)

	entries := make([]fs.DirEntry, 0, len(names))
	for _, n := range names {
		entries = append(entries, renderedInfo{name: n, size: int64(len(r[n]))})
	}
	return entries, nil
}

type renderedFile struct {
	info renderedInfo
	*bytes.Reader
}

func (f *renderedFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *renderedFile) Close() error               { return nil }

type renderedInfo struct {
	name string
	size int64
}

func (i renderedInfo) Name() string               { return i.name }
func (i renderedInfo) Size() int64                { return i.size }
func (i renderedInfo) Mode() fs.FileMode          { return 0o444 }
func (i renderedInfo) ModTime() time.Time         { return time.Time{} }
func (i renderedInfo) IsDir() bool                { return false }
func (i renderedInfo) Sys() any                   { return nil }
func (i renderedInfo) Type() fs.FileMode          { return i.Mode().Type() }
func (i renderedInfo) Info() (fs.FileInfo, error) { return i, nil }
