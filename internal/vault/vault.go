// Package vault implements off-machine destinations for store backups.
package vault

import (
	"fmt"
	"strings"
)

// validateKey rejects host ids and object names that could escape the
// host's namespace.
func validateKey(hostID, name string) error {
	for _, part := range []struct{ label, v string }{{"host id", hostID}, {"object name", name}} {
		if part.v == "" || part.v == "." || part.v == ".." {
			return fmt.Errorf("invalid %s %q", part.label, part.v)
		}
		if strings.ContainsAny(part.v, `/\`) {
			return fmt.Errorf("invalid %s %q: contains a path separator", part.label, part.v)
		}
	}
	return nil
}
