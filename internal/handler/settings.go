package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/studyolle/studyolle/internal/ctxkeys"
	"github.com/studyolle/studyolle/internal/form"
	"github.com/studyolle/studyolle/internal/repository"
	"github.com/studyolle/studyolle/internal/service"
	"github.com/studyolle/studyolle/internal/ui"
	"github.com/studyolle/studyolle/internal/ui/pages"
)

const (
	settingsProfilePath       = "/settings/profile"
	settingsPasswordPath      = "/settings/password"
	settingsNotificationsPath = "/settings/notifications"
	settingsAccountPath       = "/settings/account"
)

// SettingsHandler serves the signed-in account's settings forms. Every form
// redirects back to itself with a flash message on success and re-renders
// with field errors otherwise.
type SettingsHandler struct {
	accounts *service.AccountService
	avatars  *service.AvatarService
}

func NewSettingsHandler(accounts *service.AccountService, avatars *service.AvatarService) *SettingsHandler {
	return &SettingsHandler{
		accounts: accounts,
		avatars:  avatars,
	}
}

func (h *SettingsHandler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	account := ctxkeys.Account(r.Context())
	ui.Render(w, r, pages.SettingsProfile(form.ProfileFormFromAccount(account), nil, ui.PopFlash(w, r)))
}

func (h *SettingsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	account := ctxkeys.Account(r.Context())
	f := form.ProfileFormFrom(r)

	errs := f.Validate()
	if errs.Any() {
		ui.Render(w, r, pages.SettingsProfile(f, errs, ""))
		return
	}

	profile := f.ToProfile()
	previousImage := account.ProfileImage

	image, err := h.avatars.Resolve(r.Context(), account, profile.ProfileImage)
	if errors.Is(err, service.ErrInvalidProfileImage) {
		slog.Info("profile image rejected", "account_id", account.ID, "error", err)
		errs.Add("profileImage", "PNG, JPG, WEBP 형식의 5MB 이하 이미지만 사용할 수 있습니다.")
		f.ProfileImage = account.ProfileImageValue()
		ui.Render(w, r, pages.SettingsProfile(f, errs, ""))
		return
	}
	if err != nil {
		serverError(w, r, "failed to store profile image", err, "account_id", account.ID)
		return
	}
	profile.ProfileImage = image

	err = h.accounts.UpdateProfile(r.Context(), account, profile)
	if err != nil {
		serverError(w, r, "failed to update profile", err, "account_id", account.ID)
		return
	}
	h.avatars.Cleanup(r.Context(), previousImage, image)

	ui.SetFlash(w, "프로필을 수정했습니다.")
	http.Redirect(w, r, settingsProfilePath, http.StatusSeeOther)
}

func (h *SettingsHandler) PasswordPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.SettingsPassword(nil, ui.PopFlash(w, r)))
}

func (h *SettingsHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	account := ctxkeys.Account(r.Context())
	f := form.PasswordFormFrom(r)

	errs := f.Validate()
	if errs.Any() {
		ui.Render(w, r, pages.SettingsPassword(errs, ""))
		return
	}

	err := h.accounts.UpdatePassword(r.Context(), account, f.NewPassword)
	if err != nil {
		serverError(w, r, "failed to update password", err, "account_id", account.ID)
		return
	}

	ui.SetFlash(w, "패스워드를 변경했습니다.")
	http.Redirect(w, r, settingsPasswordPath, http.StatusSeeOther)
}

func (h *SettingsHandler) NotificationsPage(w http.ResponseWriter, r *http.Request) {
	account := ctxkeys.Account(r.Context())
	ui.Render(w, r, pages.SettingsNotifications(form.NotificationsFormFromAccount(account), nil, ui.PopFlash(w, r)))
}

func (h *SettingsHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	account := ctxkeys.Account(r.Context())
	f := form.NotificationsFormFrom(r)

	err := h.accounts.UpdateNotifications(r.Context(), account, f.ToNotifications())
	if err != nil {
		serverError(w, r, "failed to update notifications", err, "account_id", account.ID)
		return
	}

	ui.SetFlash(w, "알림 설정을 변경했습니다.")
	http.Redirect(w, r, settingsNotificationsPath, http.StatusSeeOther)
}

func (h *SettingsHandler) AccountPage(w http.ResponseWriter, r *http.Request) {
	account := ctxkeys.Account(r.Context())
	ui.Render(w, r, pages.SettingsAccount(form.NicknameForm{Nickname: account.Nickname}, nil, ui.PopFlash(w, r)))
}

func (h *SettingsHandler) UpdateNickname(w http.ResponseWriter, r *http.Request) {
	account := ctxkeys.Account(r.Context())
	f := form.NicknameFormFrom(r)

	if f.Nickname == account.Nickname {
		http.Redirect(w, r, settingsAccountPath, http.StatusSeeOther)
		return
	}

	errs, err := f.Validate(r.Context(), h.accounts)
	if err != nil {
		serverError(w, r, "nickname validation failed", err, "account_id", account.ID)
		return
	}
	if errs.Any() {
		ui.Render(w, r, pages.SettingsAccount(f, errs, ""))
		return
	}

	_, err = h.accounts.UpdateNickname(r.Context(), w, account, f.Nickname)
	if errors.Is(err, repository.ErrDuplicateNickname) {
		errs.Add("nickname", "입력하신 닉네임을 사용할 수 없습니다.")
		ui.Render(w, r, pages.SettingsAccount(f, errs, ""))
		return
	}
	if err != nil {
		serverError(w, r, "failed to update nickname", err, "account_id", account.ID)
		return
	}

	ui.SetFlash(w, "닉네임을 수정했습니다.")
	http.Redirect(w, r, settingsAccountPath, http.StatusSeeOther)
}
