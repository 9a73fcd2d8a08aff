package service

import (
	"fmt"

	"gocms/internal/auth"
)

// voterKey identifies a voter/viewer for idempotent votes and view dedup:
// the user id when authenticated, the client IP otherwise.
func voterKey(ident *auth.Identity, ip string) string {
	if ident != nil {
		return fmt.Sprintf("user:%d", ident.UserID)
	}
	return "ip:" + ip
}
