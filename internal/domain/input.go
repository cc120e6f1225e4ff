package domain

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// IDList is a list of record ids. It decodes from a JSON array of strings and,
// for older clients that send form-style bodies, from a string holding such an
// array. Anything else is a validation error rather than a decode fault.
type IDList []string

func (l *IDList) UnmarshalJSON(b []byte) error {
	var ids []string
	if err := json.Unmarshal(b, &ids); err == nil {
		*l = ids
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: reference list must be an array of ids", ErrValidation)
	}
	if strings.TrimSpace(s) == "" {
		*l = nil
		return nil
	}
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return fmt.Errorf("%w: reference list %q is not a JSON array of ids", ErrValidation, s)
	}
	*l = ids
	return nil
}

func (l IDList) validate(field string, c *collector) {
	for i, id := range l {
		if _, err := uuid.Parse(id); err != nil {
			c.add(fmt.Sprintf("%s[%d]", field, i), "must be a valid id")
		}
	}
}

func (l IDList) clone() []string {
	if l == nil {
		return []string{}
	}
	return append([]string(nil), l...)
}

// Credentials is the body of register and login requests.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims and lower-cases the email so lookups are case-insensitive.
func (c *Credentials) Normalize() {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
}

func (c Credentials) Validate() error {
	var errs collector
	if c.Email == "" {
		errs.add("email", "required")
	} else if _, err := mail.ParseAddress(c.Email); err != nil {
		errs.add("email", "must be a valid email address")
	}
	if c.Password == "" {
		errs.add("password", "required")
	} else if len(c.Password) > maxPasswordBytes {
		errs.add("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	return errs.err()
}

// CharacterInput is the body of a character create request.
type CharacterInput struct {
	Name       string  `json:"name"`
	Age        int     `json:"age"`
	Gender     Gender  `json:"gender"`
	Occupation string  `json:"occupation"`
	Photos     []Photo `json:"photos"`
	Relations  IDList  `json:"relations"`
	Properties IDList  `json:"properties"`
}

func (in CharacterInput) Validate() error {
	var errs collector
	if strings.TrimSpace(in.Name) == "" {
		errs.add("name", "required")
	}
	if in.Age < 0 {
		errs.add("age", "must not be negative")
	}
	if !in.Gender.Valid() {
		errs.add("gender", "must be one of male, female, other")
	}
	if strings.TrimSpace(in.Occupation) == "" {
		errs.add("occupation", "required")
	}
	validatePhotos(in.Photos, &errs)
	in.Relations.validate("relations", &errs)
	in.Properties.validate("properties", &errs)
	return errs.err()
}

// Character builds the record to store for the given owner.
func (in CharacterInput) Character(ownerID string) Character {
	photos := in.Photos
	if photos == nil {
		photos = []Photo{}
	}
	return Character{
		UserID:     ownerID,
		Name:       strings.TrimSpace(in.Name),
		Age:        in.Age,
		Gender:     in.Gender,
		Occupation: strings.TrimSpace(in.Occupation),
		Photos:     photos,
		Relations:  in.Relations.clone(),
		Properties: in.Properties.clone(),
	}
}

// CharacterPatch is the body of a character update. Nil fields are left as is.
type CharacterPatch struct {
	Name       *string  `json:"name"`
	Age        *int     `json:"age"`
	Gender     *Gender  `json:"gender"`
	Occupation *string  `json:"occupation"`
	Photos     *[]Photo `json:"photos"`
	Relations  *IDList  `json:"relations"`
	Properties *IDList  `json:"properties"`
}

func (p CharacterPatch) Validate() error {
	var errs collector
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		errs.add("name", "must not be empty")
	}
	if p.Age != nil && *p.Age < 0 {
		errs.add("age", "must not be negative")
	}
	if p.Gender != nil && !p.Gender.Valid() {
		errs.add("gender", "must be one of male, female, other")
	}
	if p.Occupation != nil && strings.TrimSpace(*p.Occupation) == "" {
		errs.add("occupation", "must not be empty")
	}
	if p.Photos != nil {
		validatePhotos(*p.Photos, &errs)
	}
	if p.Relations != nil {
		p.Relations.validate("relations", &errs)
	}
	if p.Properties != nil {
		p.Properties.validate("properties", &errs)
	}
	return errs.err()
}

// Apply copies the set fields onto c.
func (p CharacterPatch) Apply(c *Character) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Age != nil {
		c.Age = *p.Age
	}
	if p.Gender != nil {
		c.Gender = *p.Gender
	}
	if p.Occupation != nil {
		c.Occupation = strings.TrimSpace(*p.Occupation)
	}
	if p.Photos != nil {
		c.Photos = append([]Photo{}, *p.Photos...)
	}
	if p.Relations != nil {
		c.Relations = p.Relations.clone()
	}
	if p.Properties != nil {
		c.Properties = p.Properties.clone()
	}
}

func validatePhotos(photos []Photo, errs *collector) {
	for i, ph := range photos {
		if strings.TrimSpace(ph.URL) == "" {
			errs.add(fmt.Sprintf("photos[%d].url", i), "required")
		}
	}
}

// RelationInput is the body of relation create and update requests.
type RelationInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (in RelationInput) Validate() error {
	var errs collector
	if strings.TrimSpace(in.Name) == "" {
		errs.add("name", "required")
	}
	return errs.err()
}

// PropertyInput is the body of property create and update requests.
type PropertyInput struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

func (in PropertyInput) Validate() error {
	var errs collector
	if strings.TrimSpace(in.Name) == "" {
		errs.add("name", "required")
	}
	if strings.TrimSpace(in.Value) == "" {
		errs.add("value", "required")
	}
	if strings.TrimSpace(in.Description) == "" {
		errs.add("description", "required")
	}
	return errs.err()
}
