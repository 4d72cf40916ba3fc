package models

import (
	"testing"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	se "hivepages.io/hive/errors"
)

func TestModels_UserOwns(t *testing.T) {
	tcs := []struct {
		name     string
		user     User
		page     string
		expected bool
	}{
		{
			name:     "OwnedPage",
			user:     User{ID: "foo", Pages: []string{"a.html", "b.html"}},
			page:     "b.html",
			expected: true,
		},
		{
			name:     "ForeignPage",
			user:     User{ID: "foo", Pages: []string{"a.html"}},
			page:     "b.html",
			expected: false,
		},
		{
			name:     "EmptyPageList",
			user:     User{ID: "foo"},
			page:     "a.html",
			expected: false,
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, c.user.Owns(c.page), "unexpected ownership result")
		})
	}
}

func TestModels_UserExpired(t *testing.T) {
	tcs := []struct {
		name    string
		user    User
		expired bool
	}{
		{
			name:    "Lapsed",
			user:    User{ExpiredAt: time.Now().Add(-time.Hour)},
			expired: true,
		},
		{
			name:    "Active",
			user:    User{ExpiredAt: time.Now().Add(time.Hour)},
			expired: false,
		},
		{
			name:    "NoExpiryTracked",
			user:    User{},
			expired: false,
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expired, c.user.Expired(), "unexpected expiry result")
		})
	}
}

func TestModels_UserRenew(t *testing.T) {
	u := User{ID: "foo", Pages: []string{"a.html"}, Hash: "fakehash"}
	now := time.Now()
	u.Renew(now)
	assert.Equal(t, now.Add(30*24*time.Hour), u.ExpiredAt, "unexpected renewed expiry")
	// renewal must not touch anything else
	assert.Equal(t, []string{"a.html"}, u.Pages)
	assert.Equal(t, "fakehash", u.Hash)
}

func TestModels_UserQuota(t *testing.T) {
	u := User{Pages: []string{"1", "2", "3", "4"}}
	assert.False(t, u.AtQuota())
	u.Pages = append(u.Pages, "5")
	assert.True(t, u.AtQuota())
}

func TestModels_UserRemovePage(t *testing.T) {
	u := User{Pages: []string{"a.html", "b.html", "c.html"}}
	assert.True(t, u.RemovePage("b.html"))
	assert.Equal(t, []string{"a.html", "c.html"}, u.Pages)
	assert.False(t, u.RemovePage("b.html"))
}

func TestModels_UsersFindRemove(t *testing.T) {
	us := Users{{ID: "foo"}, {ID: "bar"}}
	assert.Equal(t, "bar", us.Find("bar").ID)
	assert.Nil(t, us.Find("qux"))
	assert.True(t, us.Remove("foo"))
	assert.Len(t, us, 1)
	assert.False(t, us.Remove("foo"))
}

func TestModels_PrincipalAnonymous(t *testing.T) {
	var p *Principal
	assert.True(t, p.Anonymous())
	assert.False(t, (&Principal{ID: "foo"}).Anonymous())
}

func TestModels_ValidPageName(t *testing.T) {
	tcs := []struct {
		name     string
		page     string
		expected bool
	}{
		{
			name:     "GeneratedName",
			page:     ksuid.New().String() + ".html",
			expected: true,
		},
		{
			name: "MissingSuffix",
			page: ksuid.New().String(),
		},
		{
			name: "NotAKsuid",
			page: "index.html",
		},
		{
			name: "PathTraversalAttempt",
			page: "../users.json",
		},
		{
			name: "Empty",
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, ValidPageName(c.page), "unexpected page name verdict for %q", c.page)
		})
	}
}

func TestModels_ValidateCredentials(t *testing.T) {
	tcs := []struct {
		name       string
		id, passwd string
		expErrCode se.ErrCode
	}{
		{
			name:   "HappyCase",
			id:     "alice1",
			passwd: "secret1",
		},
		{
			name:       "ShortID",
			id:         "al",
			passwd:     "secret1",
			expErrCode: se.ErrCodeAPIBadRequest,
		},
		{
			name:       "NonAlphanumericID",
			id:         "alice!",
			passwd:     "secret1",
			expErrCode: se.ErrCodeAPIBadRequest,
		},
		{
			name:       "ShortPassword",
			id:         "alice1",
			passwd:     "pw",
			expErrCode: se.ErrCodeAPIBadRequest,
		},
		{
			name:       "EmptyEverything",
			expErrCode: se.ErrCodeAPIBadRequest,
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateCredentials(c.id, c.passwd)
			if c.expErrCode == "" {
				assert.Nil(t, err, "expected valid credentials")
				return
			}
			if assert.NotNil(t, err, "expected validation error") {
				assert.Equal(t, c.expErrCode, err.Code, "unexpected error code")
			}
		})
	}
}
