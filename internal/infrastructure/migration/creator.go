package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const upTemplate = `-- Migration: {{.Name}}
-- Created: {{.Timestamp}}
-- Description: {{.Description}}

`

const downTemplate = `-- Migration: {{.Name}} (Rollback)
-- Created: {{.Timestamp}}

`

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// MigrationFile is a freshly created up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// MigrationInfo describes one migration found in a directory
type MigrationInfo struct {
	Version uint
	Name    string
	HasUp   bool
	HasDown bool
}

// BaseName returns the file prefix shared by the up and down files
func (i MigrationInfo) BaseName() string {
	return fmt.Sprintf("%06d_%s", i.Version, i.Name)
}

// CreateMigration writes the next sequentially numbered up/down pair into dir
func CreateMigration(dir, name, description string) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := ListMigrations(dir)
	if err != nil {
		return nil, err
	}
	var next uint = 1
	if n := len(existing); n > 0 {
		next = existing[n-1].Version + 1
	}

	info := MigrationInfo{Version: next, Name: slug}
	mf := &MigrationFile{
		Version:     fmt.Sprintf("%06d", next),
		Name:        name,
		Description: description,
		Timestamp:   time.Now().Format(time.RFC3339),
		UpPath:      filepath.Join(dir, info.BaseName()+upSuffix),
		DownPath:    filepath.Join(dir, info.BaseName()+downSuffix),
	}

	if err := writeTemplate(mf.UpPath, upTemplate, mf); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := writeTemplate(mf.DownPath, downTemplate, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

func writeTemplate(path, content string, data *MigrationFile) error {
	tmpl, err := template.New("migration").Parse(content)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return tmpl.Execute(f, data)
}

// sanitizeName lowercases name and collapses separators to single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// ListMigrations lists the migrations in dir ordered by version.
// A missing directory yields an empty list.
func ListMigrations(dir string) ([]MigrationInfo, error) {
	infos, err := ListMigrationsFS(os.DirFS(dir), ".")
	if errors.Is(err, fs.ErrNotExist) {
		return []MigrationInfo{}, nil
	}
	return infos, err
}

// ListMigrationsFS lists the migrations in dir inside fsys ordered by version
func ListMigrationsFS(fsys fs.FS, dir string) ([]MigrationInfo, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[uint]*MigrationInfo)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, up, ok := parseFileName(entry.Name())
		if !ok {
			continue
		}
		info, seen := byVersion[version]
		if !seen {
			info = &MigrationInfo{Version: version, Name: name}
			byVersion[version] = info
		} else if info.Name != name {
			return nil, fmt.Errorf("migration version %d used by %q and %q", version, info.Name, name)
		}
		if up {
			info.HasUp = true
		} else {
			info.HasDown = true
		}
	}

	out := make([]MigrationInfo, 0, len(byVersion))
	for _, info := range byVersion {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// parseFileName splits "000001_name.up.sql" into its parts
func parseFileName(file string) (version uint, name string, up bool, ok bool) {
	var base string
	switch {
	case strings.HasSuffix(file, upSuffix):
		base, up = strings.TrimSuffix(file, upSuffix), true
	case strings.HasSuffix(file, downSuffix):
		base = strings.TrimSuffix(file, downSuffix)
	default:
		return 0, "", false, false
	}
	num, rest, found := strings.Cut(base, "_")
	if !found || rest == "" {
		return 0, "", false, false
	}
	v, err := strconv.ParseUint(num, 10, 32)
	if err != nil {
		return 0, "", false, false
	}
	return uint(v), rest, up, true
}
