package stores

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cst "hivepages.io/hive/constants"
	se "hivepages.io/hive/errors"
)

func TestLocalFileStore_SaveGetDelete(t *testing.T) {
	viper.Set(cst.EnvPageSizeMaxByte, 1<<20)
	defer viper.Reset()

	fs := &LocalFileStore{Dir: t.TempDir()}
	ref := fs.Ref("0ujsszwN8NRY24YaXiTIE2VWDTS.html")
	require.Nil(t, fs.Save(ref, strings.NewReader("<p>hi</p>")), "saving page should have succeeded")

	rc, err := fs.Get(ref)
	require.Nil(t, err, "getting saved page should have succeeded")
	defer rc.Close()
	b, rerr := io.ReadAll(rc)
	require.NoError(t, rerr)
	assert.Equal(t, "<p>hi</p>", string(b), "page content should round-trip verbatim")

	require.Nil(t, fs.Delete(ref))
	_, err = fs.Get(ref)
	require.NotNil(t, err, "deleted page should not be retrievable")
	assert.Equal(t, se.ErrCodeNotFound, err.Code, "unexpected error code")
}

func TestLocalFileStore_GetAbsent(t *testing.T) {
	fs := &LocalFileStore{Dir: t.TempDir()}
	_, err := fs.Get(fs.Ref("0ujsszwN8NRY24YaXiTIE2VWDTS.html"))
	require.NotNil(t, err)
	assert.Equal(t, se.ErrCodeNotFound, err.Code)
}

func TestLocalFileStore_DeleteIdempotent(t *testing.T) {
	fs := &LocalFileStore{Dir: t.TempDir()}
	ref := fs.Ref("0ujsszwN8NRY24YaXiTIE2VWDTS.html")
	assert.Nil(t, fs.Delete(ref), "deleting an absent page should not fail")
	assert.Nil(t, fs.Delete(ref), "repeated delete should not fail")
}

func TestLocalFileStore_SaveOversized(t *testing.T) {
	viper.Set(cst.EnvPageSizeMaxByte, 8)
	defer viper.Reset()

	fs := &LocalFileStore{Dir: t.TempDir()}
	ref := fs.Ref("0ujsszwN8NRY24YaXiTIE2VWDTS.html")
	err := fs.Save(ref, strings.NewReader(strings.Repeat("x", 64)))
	require.NotNil(t, err, "oversized page should be rejected")
	assert.Equal(t, se.ErrCodeAPIBadRequest, err.Code, "unexpected error code")
}

func TestLocalFileStore_RefStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	fs := &LocalFileStore{Dir: dir}
	assert.Equal(t, filepath.Join(dir, "abc.html"), fs.Ref("abc.html"))
}
