package ui

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// LayoutData is the chrome shared by every page.
type LayoutData struct {
	Title     string
	UserName  string
	SignedIn  bool
	LoginPath string
}

// LoginPageData encapsulates rendering state for the login screen.
type LoginPageData struct {
	Email       string
	UserID      string
	Name        string
	Next        string
	Message     string
	Error       string
	LoginPath   string
	EmailLookup bool
}

// WorkoutRow is one line of the workouts table.
type WorkoutRow struct {
	Name            string
	Description     string
	DurationMinutes int
}

// WorkoutsPageData encapsulates rendering state for the workouts list.
type WorkoutsPageData struct {
	UserName string
	Rows     []WorkoutRow
	Error    string
	Offline  bool
}

type writer struct {
	w   io.Writer
	err error
}

func (x *writer) raw(s string) {
	if x.err != nil {
		return
	}
	_, x.err = io.WriteString(x.w, s)
}

func (x *writer) text(s string) {
	x.raw(templ.EscapeString(s))
}

func (x *writer) component(ctx context.Context, c templ.Component) {
	if x.err != nil || c == nil {
		return
	}
	x.err = c.Render(ctx, x.w)
}

// Layout wraps body in the page chrome.
func Layout(data LayoutData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		x := &writer{w: w}
		x.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		x.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		x.raw(`<title>`)
		x.text(data.Title)
		x.raw(` | Workout Tracker</title><link rel="stylesheet" href="/assets/app.css"></head><body>`)
		x.raw(`<header class="topbar"><a class="brand" href="/">Workout Tracker</a><nav>`)
		if data.SignedIn {
			x.raw(`<a href="/">Home</a><a href="/workouts">Workouts</a>`)
			x.raw(`<span class="user" data-user>`)
			x.text(data.UserName)
			x.raw(`</span><form method="post" action="/logout" class="logout"><button type="submit">Log out</button></form>`)
		} else {
			x.raw(`<a href="`)
			x.text(data.LoginPath)
			x.raw(`">Log in</a>`)
		}
		x.raw(`</nav></header><main>`)
		x.component(ctx, body)
		x.raw(`</main></body></html>`)
		return x.err
	})
}

// HomeBody greets the signed-in user above the rendered home copy.
func HomeBody(userName string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		x := &writer{w: w}
		x.raw(`<h1>Welcome, `)
		x.text(userName)
		x.raw(`</h1><section class="content">`)
		x.component(ctx, content)
		x.raw(`</section>`)
		return x.err
	})
}

// LoginBody renders the login form.
func LoginBody(data LoginPageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		x := &writer{w: w}
		x.raw(`<h1>Log in</h1>`)
		if data.Message != "" {
			x.raw(`<p class="notice" role="status">`)
			x.text(data.Message)
			x.raw(`</p>`)
		}
		if data.Error != "" {
			x.raw(`<p class="error" role="alert">`)
			x.text(data.Error)
			x.raw(`</p>`)
		}
		x.raw(`<form method="post" action="`)
		x.text(data.LoginPath)
		x.raw(`" class="login">`)
		if data.Next != "" {
			x.raw(`<input type="hidden" name="next" value="`)
			x.text(data.Next)
			x.raw(`">`)
		}
		if data.EmailLookup {
			x.raw(`<label>Email <input type="email" name="email" autocomplete="email" value="`)
			x.text(data.Email)
			x.raw(`"></label>`)
		} else {
			x.raw(`<label>User ID <input type="number" name="user_id" value="`)
			x.text(data.UserID)
			x.raw(`"></label><label>Name <input type="text" name="name" value="`)
			x.text(data.Name)
			x.raw(`"></label>`)
		}
		x.raw(`<button type="submit">Log in</button></form>`)
		return x.err
	})
}

// WorkoutsBody renders the current user's workouts.
func WorkoutsBody(data WorkoutsPageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		x := &writer{w: w}
		x.raw(`<h1>Workouts</h1>`)
		switch {
		case data.Error != "":
			x.raw(`<p class="error" role="alert">`)
			x.text(data.Error)
			x.raw(`</p>`)
		case data.Offline:
			x.raw(`<p class="empty">The workout service is not configured.</p>`)
		case len(data.Rows) == 0:
			x.raw(`<p class="empty">No workouts yet.</p>`)
		default:
			x.raw(`<table class="workouts"><thead><tr><th>Name</th><th>Description</th><th>Minutes</th></tr></thead><tbody>`)
			for _, row := range data.Rows {
				x.raw(`<tr><td>`)
				x.text(row.Name)
				x.raw(`</td><td>`)
				x.text(row.Description)
				x.raw(`</td><td>`)
				x.text(strconv.Itoa(row.DurationMinutes))
				x.raw(`</td></tr>`)
			}
			x.raw(`</tbody></table>`)
		}
		return x.err
	})
}

// MessageBody renders a heading with a single line of text.
func MessageBody(title, message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		x := &writer{w: w}
		x.raw(`<h1>`)
		x.text(title)
		x.raw(`</h1><p>`)
		x.text(message)
		x.raw(`</p>`)
		return x.err
	})
}

func pageTitle(status int, fallback string) string {
	if status >= 400 {
		return fmt.Sprintf("%d %s", status, fallback)
	}
	return fallback
}
