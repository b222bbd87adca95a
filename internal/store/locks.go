package store

import (
	"strings"
	"sync"
)

const lockKeySep = "\x00"

// itemLocks serializes read-modify-write cycles on one owner's key.
var itemLocks sync.Map

// LockItem blocks until the caller holds the in-process lock for (ownerID, key).
// Writers in other processes are not covered; the last write wins.
func LockItem(ownerID, key string) (unlock func()) {
	v, _ := itemLocks.LoadOrStore(ownerID+lockKeySep+key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ForgetOwner drops every lock held for ownerID's items. Call it once the
// owner's data is gone.
func ForgetOwner(ownerID string) int {
	prefix := ownerID + lockKeySep
	n := 0
	itemLocks.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			itemLocks.Delete(k)
			n++
		}
		return true
	})
	return n
}
