// Package mention matches "@" prefixes against the team roster.
package mention

import (
	"regexp"
	"strings"

	"github.com/tOgg1/streampanel/internal/models"
	"golang.org/x/text/cases"
)

// Match returns the users whose first name, last name and identity,
// concatenated and case-folded, contain the folded prefix. The roster order
// is kept. An empty prefix matches everyone.
func Match(prefix string, users []models.User) []models.User {
	if len(users) == 0 {
		return nil
	}
	folder := cases.Fold()
	needle := folder.String(prefix)
	out := make([]models.User, 0, len(users))
	for _, user := range users {
		key := folder.String(user.FirstName + user.LastName + user.Identity())
		if strings.Contains(key, needle) {
			out = append(out, user)
		}
	}
	return out
}

// MentionedUserIDs returns the IDs of roster users mentioned as "@identity"
// in text, in roster order.
func MentionedUserIDs(text string, users []models.User) []string {
	if !strings.Contains(text, "@") {
		return nil
	}
	var ids []string
	for _, user := range users {
		identity := user.Identity()
		if identity == "" {
			continue
		}
		pattern := regexp.MustCompile(`@` + regexp.QuoteMeta(identity) + `\b`)
		if pattern.MatchString(text) {
			ids = append(ids, user.ID)
		}
	}
	return ids
}

// Limit caps a candidate list for display; n <= 0 means no cap.
func Limit(users []models.User, n int) []models.User {
	if n <= 0 || len(users) <= n {
		return users
	}
	return users[:n]
}
