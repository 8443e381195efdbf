package cache

import (
	"os/user"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/srodi/faultstat/pkg/types"
)

// lookupUser allows tests to stub the system user database.
var lookupUser = user.LookupId

// Users memoizes uid -> user name lookups. Entries are never removed.
type Users struct {
	entries map[uint32]*types.UserInfo
	queries int
}

// NewUsers returns an empty user-name cache.
func NewUsers() *Users {
	return &Users{entries: make(map[uint32]*types.UserInfo, 64)}
}

// Lookup returns the cached record for uid, querying the user database on
// first sight. Unknown uids resolve to their decimal string.
func (u *Users) Lookup(uid uint32) *types.UserInfo {
	if info, ok := u.entries[uid]; ok {
		return info
	}

	u.queries++
	id := strconv.FormatUint(uint64(uid), 10)
	name := id
	if usr, err := lookupUser(id); err == nil && usr.Username != "" {
		name = usr.Username
	} else if err != nil {
		logrus.WithField("uid", uid).WithError(err).Debug("uid not in user database")
	}

	info := &types.UserInfo{UID: uid, Name: name}
	u.entries[uid] = info
	return info
}

// Len reports the number of cached uids.
func (u *Users) Len() int {
	return len(u.entries)
}

// Queries reports how many user database lookups have been issued.
func (u *Users) Queries() int {
	return u.queries
}
