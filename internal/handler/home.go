package handler

import (
	"log/slog"
	"net/http"

	"github.com/studyolle/studyolle/internal/ui"
	"github.com/studyolle/studyolle/internal/ui/pages"
)

type HomeHandler struct{}

func NewHomeHandler() *HomeHandler {
	return &HomeHandler{}
}

func (h *HomeHandler) HomePage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.Home())
}

func (h *HomeHandler) NotFoundPage(w http.ResponseWriter, r *http.Request) {
	ui.RenderStatus(w, r, http.StatusNotFound, pages.NotFound())
}

// serverError logs err and renders the generic error page.
func serverError(w http.ResponseWriter, r *http.Request, msg string, err error, args ...any) {
	slog.Error(msg, append([]any{"error", err, "path", r.URL.Path}, args...)...)
	ui.RenderStatus(w, r, http.StatusInternalServerError, pages.Error("요청을 처리하지 못했습니다. 잠시 후 다시 시도하세요."))
}
