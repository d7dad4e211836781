package form

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kingrea/reportdesk/internal/apperr"
)

// Extensions accepted for question sources, in lookup preference order.
var Extensions = []string{".xlsx", ".xls"}

// Source is a resolved question file.
type Source struct {
	Path string
	Name string
	Type ReportType
	// Typed is false when the role-generic fallback file was used.
	Typed bool
}

// Candidates lists the file names Resolve will try, in order.
func Candidates(role string, period Period) []string {
	role = strings.TrimSpace(role)
	typ := Classify(period.Month)
	names := make([]string, 0, 2*len(Extensions))
	for _, ext := range Extensions {
		names = append(names, fmt.Sprintf("%s_%d%s", role, typ.Code(), ext))
	}
	for _, ext := range Extensions {
		names = append(names, role+ext)
	}
	return names
}

// Resolve picks the question file for role in period from formsDir: the
// variant for the period's report type first, then the role-generic file.
// Nothing is cached; two calls see the directory as it is at call time.
func Resolve(formsDir, role string, period Period) (Source, error) {
	const op = "form.Resolve"
	role = strings.TrimSpace(role)
	if role == "" {
		return Source{}, apperr.Validation(op, "не выбрана форма")
	}
	typ := Classify(period.Month)
	typedCount := len(Extensions)
	for i, name := range Candidates(role, period) {
		path := filepath.Join(formsDir, name)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if errors.Is(err, fs.ErrPermission) {
				return Source{}, apperr.Wrap(apperr.KindAccess, op, err)
			}
			return Source{}, apperr.Wrap(apperr.KindIO, op, err)
		}
		if info.IsDir() {
			continue
		}
		return Source{Path: path, Name: name, Type: typ, Typed: i < typedCount}, nil
	}
	return Source{}, apperr.NotFound(op,
		"не найден файл формы для %q, ожидается %s_%d.xlsx (%s) или %s.xlsx (универсальный)",
		role, role, typ.Code(), typ.FriendlyName(), role)
}

// Catalog lists the role names available in formsDir. Type suffixes are
// stripped so "Инженер_1.xlsx" and "Инженер.xlsx" both yield "Инженер".
// A missing directory yields an empty catalog.
func Catalog(formsDir string) ([]string, error) {
	entries, err := os.ReadDir(formsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, apperr.Wrap(apperr.KindAccess, "form.Catalog", err)
		}
		return nil, apperr.Wrap(apperr.KindIO, "form.Catalog", err)
	}
	seen := map[string]struct{}{}
	var roles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !acceptedExtension(ext) {
			continue
		}
		base := stripTypeSuffix(strings.TrimSuffix(name, filepath.Ext(name)))
		if base == "" {
			continue
		}
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}
		roles = append(roles, base)
	}
	sort.Strings(roles)
	return roles, nil
}

func stripTypeSuffix(name string) string {
	for _, typ := range []ReportType{Monthly, Quarterly, Annual} {
		suffix := fmt.Sprintf("_%d", typ.Code())
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

func acceptedExtension(ext string) bool {
	for _, candidate := range Extensions {
		if ext == candidate {
			return true
		}
	}
	return false
}
