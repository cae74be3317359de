package onboarding

import (
	"strings"

	"github.com/porthealth/porthealth/internal/account"
	"github.com/porthealth/porthealth/internal/errorz"
)

// SignupForm holds the fields of the signup screen.
type SignupForm struct {
	Name     string `schema:"name"`
	Surname  string `schema:"surname"`
	Phone    string `schema:"phone"`
	Email    string `schema:"email"`
	Password string `schema:"password"`
	// Role is the label picked in the role dropdown, "Patient" or "Doctor".
	Role string `schema:"role"`
}

func (f *SignupForm) trim() {
	trim(&f.Name, &f.Surname, &f.Phone, &f.Email, &f.Password, &f.Role)
}

func (f *SignupForm) validate() errorz.InvalidInput {
	return required(
		field{"name", f.Name},
		field{"surname", f.Surname},
		field{"phone", f.Phone},
		field{"email", f.Email},
		field{"password", f.Password},
		field{"role", f.Role},
	)
}

// LoginForm holds the fields of the login screen.
type LoginForm struct {
	Email    string `schema:"email"`
	Password string `schema:"password"`
}

func (f *LoginForm) trim() {
	trim(&f.Email, &f.Password)
}

func (f *LoginForm) validate() errorz.InvalidInput {
	return required(
		field{"email", f.Email},
		field{"password", f.Password},
	)
}

// ProfileForm holds the fields of the profile completion screen.
type ProfileForm struct {
	Gender    string `schema:"gender"`
	Weight    string `schema:"weight"`
	Age       string `schema:"age"`
	Height    string `schema:"height"`
	Allergies string `schema:"allergies"`
	Diet      string `schema:"diet"`
}

func (f *ProfileForm) trim() {
	trim(&f.Gender, &f.Weight, &f.Age, &f.Height, &f.Allergies, &f.Diet)
}

func (f *ProfileForm) validate() errorz.InvalidInput {
	return required(
		field{"gender", f.Gender},
		field{"weight", f.Weight},
		field{"age", f.Age},
		field{"height", f.Height},
		field{"allergies", f.Allergies},
		field{"diet", f.Diet},
	)
}

func (f *ProfileForm) profile(id account.ID) account.Profile {
	return account.Profile{
		AccountID: id,
		Gender:    f.Gender,
		Weight:    f.Weight,
		Age:       f.Age,
		Height:    f.Height,
		Allergies: f.Allergies,
		Diet:      f.Diet,
	}
}

// roleLabels maps the labels of the role dropdown to roles.
// Matching is case-sensitive.
var roleLabels = map[string]account.Role{
	"Patient": account.RolePatient,
	"Doctor":  account.RoleDoctor,
}

type field struct {
	key   string
	value string
}

func required(fields ...field) errorz.InvalidInput {
	var invalid errorz.InvalidInput
	for _, f := range fields {
		if f.value == "" {
			invalid = append(invalid, errorz.Keyed{
				Key: f.key,
				Err: errorz.ErrEmpty,
			})
		}
	}
	return invalid
}

func trim(values ...*string) {
	for _, v := range values {
		*v = strings.TrimSpace(*v)
	}
}
