package form

import (
	"net/http"
	"strconv"

	"github.com/studyolle/studyolle/internal/model"
)

// NotificationsForm is six checkboxes. A box missing from the submission is false.
type NotificationsForm struct {
	StudyCreatedByEmail          bool
	StudyCreatedByWeb            bool
	StudyEnrollmentResultByEmail bool
	StudyEnrollmentResultByWeb   bool
	StudyUpdatedByEmail          bool
	StudyUpdatedByWeb            bool
}

func NotificationsFormFromAccount(a *model.Account) NotificationsForm {
	n := a.Notifications
	return NotificationsForm{
		StudyCreatedByEmail:          n.StudyCreatedByEmail,
		StudyCreatedByWeb:            n.StudyCreatedByWeb,
		StudyEnrollmentResultByEmail: n.StudyEnrollmentResultByEmail,
		StudyEnrollmentResultByWeb:   n.StudyEnrollmentResultByWeb,
		StudyUpdatedByEmail:          n.StudyUpdatedByEmail,
		StudyUpdatedByWeb:            n.StudyUpdatedByWeb,
	}
}

func NotificationsFormFrom(r *http.Request) NotificationsForm {
	return NotificationsForm{
		StudyCreatedByEmail:          checked(r, "studyCreatedByEmail"),
		StudyCreatedByWeb:            checked(r, "studyCreatedByWeb"),
		StudyEnrollmentResultByEmail: checked(r, "studyEnrollmentResultByEmail"),
		StudyEnrollmentResultByWeb:   checked(r, "studyEnrollmentResultByWeb"),
		StudyUpdatedByEmail:          checked(r, "studyUpdatedByEmail"),
		StudyUpdatedByWeb:            checked(r, "studyUpdatedByWeb"),
	}
}

func (f NotificationsForm) ToNotifications() model.Notifications {
	return model.Notifications{
		StudyCreatedByEmail:          f.StudyCreatedByEmail,
		StudyCreatedByWeb:            f.StudyCreatedByWeb,
		StudyEnrollmentResultByEmail: f.StudyEnrollmentResultByEmail,
		StudyEnrollmentResultByWeb:   f.StudyEnrollmentResultByWeb,
		StudyUpdatedByEmail:          f.StudyUpdatedByEmail,
		StudyUpdatedByWeb:            f.StudyUpdatedByWeb,
	}
}

func checked(r *http.Request, field string) bool {
	v := r.PostFormValue(field)
	if v == "" {
		return false
	}
	if v == "on" {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
