package stores

import (
	"bufio"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	cst "hivepages.io/hive/constants"
	se "hivepages.io/hive/errors"
)

// FileStore stores page content of individual users (note a page is just a byte
// sequence served back verbatim)
type FileStore interface {
	// Ref returns the reference of a page in file storage layer for future persistence
	// and access. It should always be deterministic based on the page name
	Ref(name string) string
	Save(ref string, r io.Reader) *se.Err
	Get(ref string) (io.ReadCloser, *se.Err)
	// Delete deletes a page from store. Delete must be idempotent
	Delete(ref string) *se.Err
	Close() *se.Err
}

// LocalFileStore implements FileStore backed by local file system. Dir doubles as
// the directory static assets are served from, mirroring the deployment layout of
// the hosting app.
type LocalFileStore struct {
	Dir string
}

func (fs *LocalFileStore) Ref(name string) string {
	return filepath.Join(fs.Dir, name)
}

func (fs *LocalFileStore) Save(ref string, r io.Reader) *se.Err {
	pageMaxSizeByte := viper.GetInt64(cst.EnvPageSizeMaxByte)
	// 1. prepare file to host data
	errMsg := "error allocating page storage space"
	if err := os.MkdirAll(filepath.Dir(ref), 0o755); err != nil {
		return se.NewServiceFailure(errMsg).WithCause(err)
	}
	f, err := os.Create(ref)
	if err != nil {
		return se.NewServiceFailure(errMsg).WithCause(err)
	}
	defer f.Close()
	// 2. pipe data to file
	br := bufio.NewReader(http.MaxBytesReader(nil, io.NopCloser(r), pageMaxSizeByte))
	if _, err := br.WriteTo(f); err != nil {
		if strings.Contains(err.Error(), cst.ErrMsgRequestBodyTooLarge) {
			return se.NewBadInput("page content oversized").WithCause(err)
		}
		return se.NewServiceFailure("error saving page content").WithCause(err)
	}
	return nil
}

func (fs *LocalFileStore) Get(ref string) (io.ReadCloser, *se.Err) {
	f, err := os.Open(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, se.NewNotFound("page not found").WithCause(err)
		}
		return nil, se.NewServiceFailure("error retrieving page content").WithCause(err)
	}
	return f, nil
}

func (fs *LocalFileStore) Delete(ref string) *se.Err {
	if err := os.Remove(ref); err != nil && !os.IsNotExist(err) {
		return se.NewServiceFailure("error removing page content").WithCause(err)
	}
	return nil
}

func (fs *LocalFileStore) Close() *se.Err {
	return nil
}
