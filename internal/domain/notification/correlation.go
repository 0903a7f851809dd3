package notification

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// ComparisonType names the correlation scheme a suppression record was built
// with. There is currently a single scheme; the field keeps records from
// different schemes from ever colliding if another one is added.
const ComparisonTypeNotifyCommand = "notify_command"

// Correlation is the value-type key deciding whether two commands are "the
// same" for suppression or digesting: subject, creator, user and contact.
type Correlation struct {
	Subject string    `json:"subject"`
	Creator uuid.UUID `json:"creator"`
	User    uuid.UUID `json:"user"`
	Contact uuid.UUID `json:"contact"`
}

// CorrelationOf derives the correlation key for a command. Pure grouping
// function; the channel is deliberately excluded so the same occurrence on
// two channels shares one key per contact.
func CorrelationOf(cmd ExecuteNotifyCommand) Correlation {
	return Correlation{
		Subject: cmd.Message.Subject,
		Creator: cmd.Message.CreatorID,
		User:    cmd.Contact.UserID,
		Contact: cmd.Contact.ID,
	}
}

// PropertyString returns the authoritative canonical form of the key. Two
// correlations are equal iff their property strings are equal; it is the
// collision tie-break behind Hash.
func (c Correlation) PropertyString() string {
	return fmt.Sprintf("subject=%s|creator=%s|user=%s|contact=%s",
		c.Subject, c.Creator, c.User, c.Contact)
}

// Hash returns a fast filter over PropertyString. Lookups filter by hash
// first and confirm with the property string.
func (c Correlation) Hash() string {
	sum := sha256.Sum256([]byte(c.PropertyString()))
	return hex.EncodeToString(sum[:])
}
