package sources

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// filenameTimestampRe matches the CRM export stamp, e.g.
// "Gala Registration List 3-14-2025 10-05-33 AM.xlsx".
var filenameTimestampRe = regexp.MustCompile(`(?i)(\d{1,2}-\d{1,2}-\d{4})[_ ]?(\d{1,2}-\d{1,2}-\d{1,2})[_ ]?(AM|PM)`)

const filenameTimestampLayout = "1-2-2006 3-4-5 PM"

// MissingFilesError reports every required kind with no candidate file.
type MissingFilesError struct {
	Dir   string
	Kinds []Kind
}

func (e *MissingFilesError) Error() string {
	names := make([]string, len(e.Kinds))
	for i, k := range e.Kinds {
		names[i] = string(k)
	}
	return fmt.Sprintf("missing required files: %s", strings.Join(names, ", "))
}

// File is one located export.
type File struct {
	Kind      Kind
	Path      string
	Timestamp time.Time
	// FromName is true when Timestamp came from the filename rather than
	// the modification time.
	FromName bool
}

// Files holds the newest file of each kind.
type Files map[Kind]File

// Paths returns kind -> path.
func (f Files) Paths() map[Kind]string {
	out := make(map[Kind]string, len(f))
	for k, file := range f {
		out[k] = file.Path
	}
	return out
}

// ParseFilenameTimestamp extracts the export stamp embedded in a filename.
// The stamp carries no zone and is read in local time.
func ParseFilenameTimestamp(filename string) (time.Time, bool) {
	base := filepath.Base(filename)
	m := filenameTimestampRe.FindStringSubmatch(strings.TrimSuffix(base, filepath.Ext(base)))
	if m == nil {
		return time.Time{}, false
	}
	stamp := m[1] + " " + m[2] + " " + strings.ToUpper(m[3])
	t, err := time.ParseInLocation(filenameTimestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Locate scans dir and selects the newest file of every required kind.
// It fails with *MissingFilesError naming each kind that has no candidate.
func Locate(dir string, logger *slog.Logger) (Files, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory %s: %w", dir, err)
	}

	found := make(Files, len(Kinds))
	for _, entry := range entries {
		if entry.IsDir() || !IsCandidate(entry.Name()) {
			continue
		}

		kind := DetectKind(entry.Name())
		if kind == "" {
			logger.Debug("ignoring file with unknown kind", "file", entry.Name())
			continue
		}

		file := File{Kind: kind, Path: filepath.Join(dir, entry.Name())}
		if ts, ok := ParseFilenameTimestamp(entry.Name()); ok {
			file.Timestamp = ts
			file.FromName = true
		} else {
			info, err := entry.Info()
			if err != nil {
				logger.Warn("cannot stat source file", "file", entry.Name(), "error", err)
				continue
			}
			file.Timestamp = info.ModTime()
		}

		if current, ok := found[kind]; !ok || file.Timestamp.After(current.Timestamp) {
			found[kind] = file
		}
	}

	var missing []Kind
	for _, kind := range Kinds {
		if _, ok := found[kind]; !ok {
			missing = append(missing, kind)
		}
	}
	if len(missing) > 0 {
		logger.Error("missing required source files", "dir", dir, "kinds", missing)
		return nil, &MissingFilesError{Dir: dir, Kinds: missing}
	}

	for _, kind := range Kinds {
		f := found[kind]
		logger.Debug("selected source file",
			"kind", string(kind),
			"file", filepath.Base(f.Path),
			"timestamp", f.Timestamp,
			"from_name", f.FromName,
		)
	}
	return found, nil
}

// LocateKind finds the newest file of a single kind. It is used when only
// one export is needed, such as listing events from the registration list.
func LocateKind(dir string, kind Kind) (File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return File{}, fmt.Errorf("reading source directory %s: %w", dir, err)
	}

	var candidates []File
	for _, entry := range entries {
		if entry.IsDir() || !IsCandidate(entry.Name()) || DetectKind(entry.Name()) != kind {
			continue
		}
		file := File{Kind: kind, Path: filepath.Join(dir, entry.Name())}
		if ts, ok := ParseFilenameTimestamp(entry.Name()); ok {
			file.Timestamp, file.FromName = ts, true
		} else if info, err := entry.Info(); err == nil {
			file.Timestamp = info.ModTime()
		}
		candidates = append(candidates, file)
	}
	if len(candidates) == 0 {
		return File{}, &MissingFilesError{Dir: dir, Kinds: []Kind{kind}}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Timestamp.After(candidates[j].Timestamp)
	})
	return candidates[0], nil
}
