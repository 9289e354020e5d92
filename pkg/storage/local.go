package stores

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStore represents local file system storage
type LocalStore struct {
	Root       string
	NewDirPerm os.FileMode
}

// resolve maps key below Root and rejects keys escaping it
func (l *LocalStore) resolve(key string) (string, string, error) {
	root, err := filepath.Abs(l.Root)
	if err != nil {
		return "", "", err
	}
	fname := filepath.Clean(filepath.Join(root, key))
	if fname != root && !strings.HasPrefix(fname, root+string(filepath.Separator)) {
		return "", "", ErrInvalidPath
	}
	return root, fname, nil
}

func (l *LocalStore) Delete(ctx context.Context, key string) error {
	_, fname, err := l.resolve(key)
	if err != nil {
		return err
	}
	return os.Remove(fname)
}

func (l *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	_, fname, err := l.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err = os.Stat(fname); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *LocalStore) Read(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	_, fname, err := l.resolve(key)
	if err != nil {
		return nil, 0, err
	}
	st, err := os.Stat(fname)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(fname)
	if err != nil {
		return nil, 0, err
	}
	return f, st.Size(), nil
}

func (l *LocalStore) Write(ctx context.Context, key string, r io.Reader) error {
	_, fname, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(fname), l.NewDirPerm); err != nil {
		return err
	}
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

// List walks Root and returns slash separated keys starting with prefix
func (l *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	root, _, err := l.resolve("")
	if err != nil {
		return nil, err
	}
	var keys []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if key := filepath.ToSlash(rel); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
