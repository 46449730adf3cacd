package ids

import "github.com/segmentio/ksuid"

// New returns a k-sortable identifier used for account and token primary keys.
func New() string {
	return ksuid.New().String()
}
