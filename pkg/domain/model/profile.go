package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// Profile field names accepted by ApplyField. "hobby" appends to the
// hobby set; "preference_<category>" upserts one preference entry.
const (
	ProfileFieldName       = "name"
	ProfileFieldAge        = "age"
	ProfileFieldOccupation = "occupation"
	ProfileFieldLocation   = "location"
	ProfileFieldBirthday   = "birthday"
	ProfileFieldHobby      = "hobby"

	profilePreferencePrefix = "preference_"
)

// UserProfile holds structured facts about one user. There is exactly one
// per user. Optional fields are pointers so an absent value is reported as
// unset rather than an empty string.
type UserProfile struct {
	UserID      types.UserID
	Name        *string
	Age         *int
	Occupation  *string
	Location    *string
	Birthday    *string
	Hobbies     []string
	Preferences map[string]string
}

// NewUserProfile returns an empty profile for a user
func NewUserProfile(userID types.UserID) *UserProfile {
	return &UserProfile{
		UserID:      userID,
		Preferences: make(map[string]string),
	}
}

// ApplyField upserts a single profile field, leaving all other fields
// untouched. Unknown field names are rejected so typos never silently
// create data.
func (p *UserProfile) ApplyField(field, value string) error {
	switch {
	case field == ProfileFieldName:
		p.Name = &value
	case field == ProfileFieldAge:
		age, err := parseAge(value)
		if err != nil {
			return err
		}
		p.Age = &age
	case field == ProfileFieldOccupation:
		p.Occupation = &value
	case field == ProfileFieldLocation:
		p.Location = &value
	case field == ProfileFieldBirthday:
		p.Birthday = &value
	case field == ProfileFieldHobby:
		p.addHobby(value)
	case strings.HasPrefix(field, profilePreferencePrefix):
		category := strings.TrimPrefix(field, profilePreferencePrefix)
		if category == "" {
			return goerr.Wrap(types.ErrValidation, "preference field requires a category",
				goerr.V("field", field))
		}
		if p.Preferences == nil {
			p.Preferences = make(map[string]string)
		}
		p.Preferences[category] = value
	default:
		return goerr.Wrap(types.ErrValidation, "unknown profile field",
			goerr.V("field", field))
	}
	return nil
}

func (p *UserProfile) addHobby(hobby string) {
	for _, h := range p.Hobbies {
		if h == hobby {
			return
		}
	}
	p.Hobbies = append(p.Hobbies, hobby)
}

// IsEmpty reports whether no field has ever been set
func (p *UserProfile) IsEmpty() bool {
	return p.Name == nil && p.Age == nil && p.Occupation == nil &&
		p.Location == nil && p.Birthday == nil &&
		len(p.Hobbies) == 0 && len(p.Preferences) == 0
}

// Clone returns a deep copy
func (p *UserProfile) Clone() *UserProfile {
	copied := &UserProfile{
		UserID:      p.UserID,
		Hobbies:     append([]string(nil), p.Hobbies...),
		Preferences: make(map[string]string, len(p.Preferences)),
	}
	copied.Name = copyStringPtr(p.Name)
	copied.Age = copyIntPtr(p.Age)
	copied.Occupation = copyStringPtr(p.Occupation)
	copied.Location = copyStringPtr(p.Location)
	copied.Birthday = copyStringPtr(p.Birthday)
	for k, v := range p.Preferences {
		copied.Preferences[k] = v
	}
	return copied
}

func copyStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyIntPtr(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

func parseAge(value string) (int, error) {
	age := 0
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, goerr.Wrap(types.ErrValidation, "age must be numeric",
				goerr.V("value", value))
		}
		age = age*10 + int(r-'0')
		if age > 200 {
			return 0, goerr.Wrap(types.ErrValidation, "age out of range",
				goerr.V("value", value))
		}
	}
	if age == 0 {
		return 0, goerr.Wrap(types.ErrValidation, "age must be positive",
			goerr.V("value", value))
	}
	return age, nil
}
