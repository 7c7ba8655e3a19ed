package form

import (
	"net/http"
	"strings"

	"github.com/studyolle/studyolle/internal/model"
	"github.com/studyolle/studyolle/internal/validation"
)

type ProfileForm struct {
	Bio          string
	URL          string
	Occupation   string
	Location     string
	ProfileImage string
}

func ProfileFormFromAccount(a *model.Account) ProfileForm {
	return ProfileForm{
		Bio:          a.BioValue(),
		URL:          a.URLValue(),
		Occupation:   a.OccupationValue(),
		Location:     a.LocationValue(),
		ProfileImage: a.ProfileImageValue(),
	}
}

func ProfileFormFrom(r *http.Request) ProfileForm {
	return ProfileForm{
		Bio:          strings.TrimSpace(r.PostFormValue("bio")),
		URL:          strings.TrimSpace(r.PostFormValue("url")),
		Occupation:   strings.TrimSpace(r.PostFormValue("occupation")),
		Location:     strings.TrimSpace(r.PostFormValue("location")),
		ProfileImage: r.PostFormValue("profileImage"),
	}
}

func (f ProfileForm) Validate() Errors {
	errs := Errors{}
	if err := validation.ValidateMaxLength(f.Bio, validation.BioMaxLength); err != nil {
		errs.Add("bio", err.Error())
	}
	if err := validation.ValidateMaxLength(f.URL, validation.URLMaxLength); err != nil {
		errs.Add("url", err.Error())
	}
	if err := validation.ValidateMaxLength(f.Occupation, validation.OccupationMaxLength); err != nil {
		errs.Add("occupation", err.Error())
	}
	if err := validation.ValidateMaxLength(f.Location, validation.LocationMaxLength); err != nil {
		errs.Add("location", err.Error())
	}
	return errs
}

// ToProfile maps the form onto the entity fields. Blank inputs clear the field.
func (f ProfileForm) ToProfile() model.Profile {
	return model.Profile{
		Bio:          optional(f.Bio),
		URL:          optional(f.URL),
		Occupation:   optional(f.Occupation),
		Location:     optional(f.Location),
		ProfileImage: optional(f.ProfileImage),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
