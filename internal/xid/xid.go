package xid

import "github.com/google/uuid"

// New returns an identifier of the form "<prefix>-<uuid v4>".
func New(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}
