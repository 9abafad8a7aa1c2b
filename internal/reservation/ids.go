package reservation

import (
	"strings"

	"github.com/google/uuid"
)

// NewToken returns a random 32 character hex identifier, used for hold
// tokens and sale ids.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewTicketCode returns a code of the form TKT-XXXXXXXXXX.
func NewTicketCode() string {
	return "TKT-" + strings.ToUpper(NewToken()[:10])
}
