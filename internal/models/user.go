package models

import "strings"

// User is a member of the team roster.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Identity is the handle used after "@": the username, or the local part
// of the email when no username is set.
func (u User) Identity() string {
	if name := strings.TrimSpace(u.Username); name != "" {
		return name
	}
	email := strings.TrimSpace(u.Email)
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at]
	}
	return email
}

// FullName joins first and last name, falling back to the identity.
func (u User) FullName() string {
	full := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if full == "" {
		return u.Identity()
	}
	return full
}

// Validate checks that the user can be addressed.
func (u User) Validate() error {
	validation := &ValidationErrors{}
	if u.Identity() == "" {
		validation.Add("username", ErrIdentityRequired)
	}
	if email := strings.TrimSpace(u.Email); email != "" && !strings.Contains(email, "@") {
		validation.AddMessage("email", "email must contain @")
	}
	return validation.Err()
}

// FindUserByEmail looks up a roster entry by email, case-insensitively.
func FindUserByEmail(users []User, email string) (User, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, false
	}
	for _, user := range users {
		if strings.EqualFold(strings.TrimSpace(user.Email), email) {
			return user, true
		}
	}
	return User{}, false
}
