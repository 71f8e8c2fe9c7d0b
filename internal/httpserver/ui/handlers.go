package ui

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"github.com/drichardson-tmp/workout-tracker/internal/backend"
	custommw "github.com/drichardson-tmp/workout-tracker/internal/httpserver/middleware"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/requestctx"
	"github.com/drichardson-tmp/workout-tracker/internal/session"
)

// Backend is the subset of the API client the pages use.
type Backend interface {
	Configured() bool
	FindUserByEmail(ctx context.Context, email string) (backend.User, error)
	ListWorkouts(ctx context.Context, userID int64) ([]backend.Workout, error)
}

// Handlers serves the application pages.
type Handlers struct {
	backend   Backend
	loginPath string
}

// NewHandlers wires page handlers. A nil backend disables email lookup and
// the workouts list.
func NewHandlers(api Backend, loginPath string) *Handlers {
	if strings.TrimSpace(loginPath) == "" {
		loginPath = "/login"
	}
	return &Handlers{backend: api, loginPath: loginPath}
}

// Home renders the landing page.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	id := h.identity(r)
	h.render(w, r, http.StatusOK, "Home", HomeBody(id.Name(), HomeContent()))
}

// LoginForm renders the login page, or sends a signed-in user on to next.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if h.identity(r).IsAuthenticated() && !forceLogin(r) {
		http.Redirect(w, r, h.redirectTarget(q.Get("next")), http.StatusFound)
		return
	}

	data := h.loginData(LoginPageData{Next: h.normalizeNext(q.Get("next"))})
	if q.Get("status") == "logged_out" {
		data.Message = "You have been logged out."
	}
	h.render(w, r, http.StatusOK, "Log in", LoginBody(data))
}

// LoginSubmit signs the browser in, either by email lookup against the API
// or by an explicit user id and name.
func (h *Handlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, r, http.StatusBadRequest, LoginPageData{}, "The form could not be read. Please try again.")
		return
	}

	state := LoginPageData{
		Email:  strings.TrimSpace(r.PostFormValue("email")),
		UserID: strings.TrimSpace(r.PostFormValue("user_id")),
		Name:   strings.TrimSpace(r.PostFormValue("name")),
		Next:   r.PostFormValue("next"),
	}

	id, name, status, msg := h.resolveUser(r.Context(), state)
	if msg != "" {
		h.renderLoginError(w, r, status, state, msg)
		return
	}

	store, ok := custommw.StoreFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := store.Login(r.Context(), id, name); err != nil {
		requestctx.Logger(r.Context()).Error("persist login failed", zap.Int64("user_id", id), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	custommw.Navigate(w, r, h.redirectTarget(state.Next), http.StatusNoContent, http.StatusSeeOther)
}

// Logout clears the session and returns to the login page.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if store, ok := custommw.StoreFromContext(r.Context()); ok {
		if err := store.Logout(r.Context()); err != nil {
			requestctx.Logger(r.Context()).Error("persist logout failed", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	custommw.Navigate(w, r, h.loginPath+"?status=logged_out", http.StatusNoContent, http.StatusSeeOther)
}

// Workouts lists the signed-in user's workouts.
func (h *Handlers) Workouts(w http.ResponseWriter, r *http.Request) {
	id := h.identity(r)
	data := WorkoutsPageData{UserName: id.Name()}
	userID, _ := id.ID()

	status := http.StatusOK
	if h.backend == nil || !h.backend.Configured() {
		data.Offline = true
	} else {
		workouts, err := h.backend.ListWorkouts(r.Context(), userID)
		if err != nil {
			requestctx.Logger(r.Context()).Warn("list workouts failed", zap.Int64("user_id", userID), zap.Error(err))
			data.Error = "Workouts could not be loaded right now."
			status = http.StatusBadGateway
		}
		for _, wo := range workouts {
			data.Rows = append(data.Rows, WorkoutRow{
				Name:            wo.Name,
				Description:     wo.Description,
				DurationMinutes: wo.DurationMinutes,
			})
		}
	}
	h.render(w, r, status, "Workouts", WorkoutsBody(data))
}

// NotFound renders the 404 page.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "Not found", MessageBody("Page not found", "There is nothing at "+r.URL.Path+"."))
}

// MethodNotAllowed renders the 405 page.
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusMethodNotAllowed, "Method not allowed", MessageBody("Method not allowed", r.Method+" is not supported on "+r.URL.Path+"."))
}

func (h *Handlers) resolveUser(ctx context.Context, state LoginPageData) (int64, string, int, string) {
	if state.Email != "" && h.emailLookup() {
		user, err := h.backend.FindUserByEmail(ctx, state.Email)
		switch {
		case errors.Is(err, backend.ErrUserNotFound):
			return 0, "", http.StatusUnauthorized, "No account matches that email address."
		case err != nil:
			requestctx.Logger(ctx).Warn("user lookup failed", zap.Error(err))
			return 0, "", http.StatusBadGateway, "Sign-in is unavailable right now. Please try again later."
		}
		name := strings.TrimSpace(user.Name)
		if name == "" {
			name = user.Email
		}
		return user.ID, name, 0, ""
	}

	if state.UserID == "" || state.Name == "" {
		if h.emailLookup() {
			return 0, "", http.StatusBadRequest, "Enter your email address."
		}
		return 0, "", http.StatusBadRequest, "Enter your user ID and name."
	}
	id, err := strconv.ParseInt(state.UserID, 10, 64)
	if err != nil {
		return 0, "", http.StatusBadRequest, "User ID must be a whole number."
	}
	return id, state.Name, 0, ""
}

func (h *Handlers) emailLookup() bool {
	return h.backend != nil && h.backend.Configured()
}

func (h *Handlers) loginData(data LoginPageData) LoginPageData {
	data.LoginPath = h.loginPath
	data.EmailLookup = h.emailLookup()
	return data
}

func (h *Handlers) renderLoginError(w http.ResponseWriter, r *http.Request, status int, state LoginPageData, msg string) {
	state.Error = msg
	state.Next = h.normalizeNext(state.Next)
	h.render(w, r, status, "Log in", LoginBody(h.loginData(state)))
}

func (h *Handlers) identity(r *http.Request) session.Identity {
	if store, ok := custommw.StoreFromContext(r.Context()); ok {
		return *store.Read()
	}
	return session.Anonymous()
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component) {
	id := h.identity(r)
	page := Layout(LayoutData{
		Title:     pageTitle(status, title),
		UserName:  id.Name(),
		SignedIn:  id.IsAuthenticated(),
		LoginPath: h.loginPath,
	}, body)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Render(r.Context(), w); err != nil {
		requestctx.Logger(r.Context()).Error("render page failed", zap.String("title", title), zap.Error(err))
	}
}
