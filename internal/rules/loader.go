package rules

import (
	"path/filepath"

	"github.com/raaihank/whatis/internal/logger"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Loader reads raw rule records from a rules directory.
//
// Every entry directly inside the directory that resolves to a regular file
// (symlinks are followed) is parsed as one record. Directories and other
// non-regular entries are skipped. Entries are visited in lexical order.
type Loader struct {
	Fs     afero.Fs
	Logger *logger.Logger
}

// LoadRawRules reads every rule file in dir from fsys.
func LoadRawRules(fsys afero.Fs, dir string) ([]RawRule, error) {
	return (&Loader{Fs: fsys}).Load(dir)
}

// Load reads every rule file in dir. The first unreadable or malformed file
// fails the whole load.
func (l *Loader) Load(dir string) ([]RawRule, error) {
	fsys := l.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	log := l.Logger
	if log == nil {
		log = logger.Wrap(nil)
	}

	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, &SourceLoadError{Path: dir, Err: err}
	}

	out := make([]RawRule, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		info, err := fsys.Stat(path)
		if err != nil {
			return nil, &SourceLoadError{Path: path, Err: err}
		}
		flog := log.WithFile(path)
		if !info.Mode().IsRegular() {
			flog.Debug("Skipping non-regular rules directory entry",
				zap.String("mode", info.Mode().String()),
			)
			continue
		}

		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return nil, &SourceLoadError{Path: path, Err: err}
		}

		raw, err := ParseRule(data, FormatFor(path))
		if err != nil {
			return nil, &SourceLoadError{Path: path, Err: err}
		}
		raw.Source = path

		flog.WithRule(raw.Name).Debug("Rule source parsed")
		out = append(out, raw)
	}

	return out, nil
}
