package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/segmentio/ksuid"

	cst "hivepages.io/hive/constants"
	se "hivepages.io/hive/errors"
)

/*
 Application layer data models.
*/

// User models an individual service user record as persisted in the user collection.
// The JSON field names form the on-disk schema of the collection file.
type User struct {
	ID        string    `json:"id"`
	Hash      string    `json:"password"`
	Pages     []string  `json:"htmls"`
	ExpiredAt time.Time `json:"expiredAt"`
}

// Owns reports whether the named page belongs to the user. Page list membership is
// the sole authorization basis for editing and deleting a page.
func (u *User) Owns(name string) bool {
	for _, p := range u.Pages {
		if p == name {
			return true
		}
	}
	return false
}

// Expired reports whether the user's membership has lapsed. A zero expiry means the
// record predates expiry tracking and never lapses.
func (u *User) Expired() bool {
	return !u.ExpiredAt.IsZero() && u.ExpiredAt.Before(time.Now())
}

// Renew extends the membership to now plus one membership period. It touches nothing
// but the expiry.
func (u *User) Renew(now time.Time) {
	u.ExpiredAt = now.Add(cst.MembershipPeriod)
}

// AtQuota reports whether the user already owns the maximum number of pages.
func (u *User) AtQuota() bool {
	return len(u.Pages) >= cst.MaxPagesPerUser
}

// RemovePage drops the named page from the user's page list, reporting whether it
// was present.
func (u *User) RemovePage(name string) bool {
	for i, p := range u.Pages {
		if p == name {
			u.Pages = append(u.Pages[:i], u.Pages[i+1:]...)
			return true
		}
	}
	return false
}

// Users is the user collection, always loaded and saved as a whole.
type Users []*User

// Find returns the record with the given id, or nil if absent.
func (us Users) Find(id string) *User {
	for _, u := range us {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// Remove drops the record with the given id, reporting whether it was present.
func (us *Users) Remove(id string) bool {
	for i, u := range *us {
		if u.ID == id {
			*us = append((*us)[:i], (*us)[i+1:]...)
			return true
		}
	}
	return false
}

// Principal is the authenticated identity attached to a request. A nil Principal is
// an anonymous requester. Admin principals come from static configuration and never
// appear in the user collection.
type Principal struct {
	ID    string
	Admin bool
}

func (p *Principal) Anonymous() bool {
	return p == nil
}

// PageSuffix is the extension every generated page name carries.
const PageSuffix = ".html"

// ValidPageName reports whether name is a generated page identifier (a ksuid plus
// the page suffix). Anything else never left this service, so it is rejected at
// the route boundary before touching the filesystem.
func ValidPageName(name string) bool {
	base, ok := strings.CutSuffix(name, PageSuffix)
	if !ok {
		return false
	}
	_, err := ksuid.Parse(base)
	return err == nil
}

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ValidateCredentials checks the format of a user id and password before any store
// mutation: ids are 3+ alphanumeric characters, passwords 6+ characters.
func ValidateCredentials(id, passwd string) *se.Err {
	var faults []string
	if len(id) < 3 {
		faults = append(faults, "id must be at least 3 characters long")
	}
	if id != "" && !idPattern.MatchString(id) {
		faults = append(faults, "id must contain letters and digits only")
	}
	if len(passwd) < 6 {
		faults = append(faults, "password must be at least 6 characters long")
	}
	if len(faults) > 0 {
		return se.NewBadInput(strings.Join(faults, ". "))
	}
	return nil
}
