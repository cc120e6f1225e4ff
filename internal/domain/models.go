package domain

import "time"

// User is a registered account. PasswordHash is a bcrypt hash, never the plaintext.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Photo is a reference to an image stored elsewhere.
type Photo struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Character is a screenplay character. Relations and Properties hold ids of
// independently owned records; they are not cascaded and may dangle.
type Character struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user"`
	Name       string    `json:"name"`
	Age        int       `json:"age"`
	Photos     []Photo   `json:"photos"`
	Gender     Gender    `json:"gender"`
	Occupation string    `json:"occupation"`
	Relations  []string  `json:"relations"`
	Properties []string  `json:"properties"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Relation struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Property struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description"`
}
