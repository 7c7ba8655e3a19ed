package handler

import (
	"errors"
	"net/http"

	"github.com/studyolle/studyolle/internal/ctxkeys"
	"github.com/studyolle/studyolle/internal/repository"
	"github.com/studyolle/studyolle/internal/service"
	"github.com/studyolle/studyolle/internal/ui"
	"github.com/studyolle/studyolle/internal/ui/pages"
)

type ProfileHandler struct {
	accounts *service.AccountService
	avatars  *service.AvatarService
}

func NewProfileHandler(accounts *service.AccountService, avatars *service.AvatarService) *ProfileHandler {
	return &ProfileHandler{
		accounts: accounts,
		avatars:  avatars,
	}
}

// ProfilePage shows the public profile of the account named in the path.
func (h *ProfileHandler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	nickname := r.PathValue("nickname")

	member, err := h.accounts.ByNickname(r.Context(), nickname)
	if errors.Is(err, repository.ErrAccountNotFound) {
		ui.RenderStatus(w, r, http.StatusNotFound, pages.NotFound())
		return
	}
	if err != nil {
		serverError(w, r, "failed to load profile", err, "nickname", nickname)
		return
	}

	member.Password = ""
	h.avatars.Populate(member)

	current := ctxkeys.Account(r.Context())
	ui.Render(w, r, pages.Profile(pages.ProfileData{
		Member:  member,
		IsOwner: current != nil && current.ID == member.ID,
	}, ui.PopFlash(w, r)))
}
