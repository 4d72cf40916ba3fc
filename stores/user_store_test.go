package stores

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	md "hivepages.io/hive/models"
)

func TestFileUserStore_LoadAbsentFile(t *testing.T) {
	s := &FileUserStore{Path: filepath.Join(t.TempDir(), "users.json")}
	us, err := s.Load()
	assert.Nil(t, err, "loading an absent collection should not fail")
	assert.Empty(t, us, "absent collection should load as empty")
}

func TestFileUserStore_SaveLoadRoundtrip(t *testing.T) {
	s := &FileUserStore{Path: filepath.Join(t.TempDir(), "users.json")}
	exp := md.Users{
		{
			ID:        "alice1",
			Hash:      "fakehash",
			Pages:     []string{"a.html", "b.html"},
			ExpiredAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		},
		{ID: "bob22", Hash: "otherhash", Pages: []string{}},
	}
	require.Nil(t, s.Save(exp), "saving collection should have succeeded")

	actual, err := s.Load()
	require.Nil(t, err, "loading collection should have succeeded")
	require.Len(t, actual, 2)
	assert.Equal(t, exp[0].ID, actual[0].ID)
	assert.Equal(t, exp[0].Pages, actual[0].Pages)
	assert.True(t, exp[0].ExpiredAt.Equal(actual[0].ExpiredAt), "expiry should survive the roundtrip")
	assert.Equal(t, exp[1].ID, actual[1].ID)
}

func TestFileUserStore_SaveOverwrites(t *testing.T) {
	s := &FileUserStore{Path: filepath.Join(t.TempDir(), "users.json")}
	require.Nil(t, s.Save(md.Users{{ID: "alice1"}, {ID: "bob22"}}))
	require.Nil(t, s.Save(md.Users{{ID: "alice1"}}))

	us, err := s.Load()
	require.Nil(t, err)
	assert.Len(t, us, 1, "save should fully replace prior content")
	// no stray temp files left behind
	entries, ferr := os.ReadDir(filepath.Dir(s.Path))
	require.NoError(t, ferr)
	assert.Len(t, entries, 1, "temp files should not accumulate")
}

func TestFileUserStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("junk{"), 0o644))
	s := &FileUserStore{Path: path}
	_, err := s.Load()
	assert.NotNil(t, err, "corrupt collection should fail to load")
}

func TestFileUserStore_SchemaFieldNames(t *testing.T) {
	// the on-disk schema is shared with the original deployment; field names must not drift
	s := &FileUserStore{Path: filepath.Join(t.TempDir(), "users.json")}
	require.Nil(t, s.Save(md.Users{{ID: "alice1", Hash: "fakehash", Pages: []string{"a.html"}}}))
	b, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	var raw []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Len(t, raw, 1)
	for _, field := range []string{"id", "password", "htmls", "expiredAt"} {
		assert.Contains(t, raw[0], field, "missing schema field")
	}
}

func TestMemUserStore_LoadIsolation(t *testing.T) {
	s := &MemUserStore{}
	require.Nil(t, s.Save(md.Users{{ID: "alice1", Pages: []string{"a.html"}}}))

	us, err := s.Load()
	require.Nil(t, err)
	us[0].Pages = append(us[0].Pages, "b.html")

	again, err := s.Load()
	require.Nil(t, err)
	assert.Equal(t, []string{"a.html"}, again[0].Pages, "mutating a loaded copy must not leak into the store")
}
