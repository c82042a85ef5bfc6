// Package views renders the contacts directory as server-side HTML pages.
//
// The intake form is shared by creation and edition: its [Intake] travels
// in hidden fields and a single submit handler dispatches on it.
package views

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	ds "github.com/oaiiae/contacts-directory/datastores"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// Mode of the intake form.
type Mode int

const (
	Creating Mode = iota
	Editing
)

func (m Mode) String() string {
	switch m {
	case Creating:
		return "create"
	case Editing:
		return "edit"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Intake is the state of the intake form: creating a contact, or editing
// the contact ID.
type Intake struct {
	Mode Mode
	ID   ds.ContactID
}

func (i Intake) Editing() bool { return i.Mode == Editing }

var errBadIntake = errors.New("views: bad intake")

func parseIntake(form url.Values) (Intake, error) {
	switch form.Get("mode") {
	case Creating.String():
		return Intake{Mode: Creating}, nil
	case Editing.String():
		id, err := strconv.ParseInt(form.Get("id"), 10, 64)
		if err != nil {
			return Intake{}, fmt.Errorf("%w: id: %w", errBadIntake, err)
		}
		return Intake{Mode: Editing, ID: id}, nil
	default:
		return Intake{}, fmt.Errorf("%w: mode %q", errBadIntake, form.Get("mode"))
	}
}

// notices are the transient messages shown after a redirect, selected by
// the "notice" query parameter.
var notices = map[string]string{
	"added":    "Contact added successfully!",
	"updated":  "Contact updated successfully!",
	"deleted":  "Contact deleted successfully!",
	"notfound": "Contact not found.",
	"unsaved":  "Your change is kept for this session but could not be saved.",
}

type formData struct {
	Intake Intake
	Fields ds.ContactFields
	Error  string
}

type pageData struct {
	Title    string
	Notice   string
	Contacts []ds.Contact
	Form     formData
}

// Pages implements [http.Handler].
type Pages struct {
	Store  ds.ContactsStore
	Logger *slog.Logger

	once sync.Once
	mux  *http.ServeMux
}

func (p *Pages) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.once.Do(func() {
		p.mux = http.NewServeMux()
		p.mux.HandleFunc("GET /{$}", p.home)
		p.mux.HandleFunc("GET /contacts", p.list)
		p.mux.HandleFunc("GET /contacts/new", p.create)
		p.mux.HandleFunc("GET /contacts/{id}/edit", p.edit)
		p.mux.HandleFunc("POST /contacts/form", p.submit)
		p.mux.HandleFunc("POST /contacts/{id}/delete", p.del)
	})
	p.mux.ServeHTTP(w, r)
}

func (p *Pages) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data *pageData) {
	data.Notice = notices[r.URL.Query().Get("notice")]
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := templates.ExecuteTemplate(w, name, data)
	if err != nil {
		p.logger().Error("could not render page", "page", name, "err", err)
	}
}

// fail logs err and answers with a plain 500.
func (p *Pages) fail(w http.ResponseWriter, r *http.Request, err error) {
	p.logger().Error("error occurred", "method", r.Method, "path", r.URL.Path, "err", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// redirect sends the browser to path with a notice. Unsaved changes
// replace the success notice.
func (p *Pages) redirect(w http.ResponseWriter, r *http.Request, path, notice string, err error) {
	if errors.Is(err, ds.ErrPersistence) {
		p.logger().Warn("could not persist contacts", "err", err)
		notice = "unsaved"
	}
	http.Redirect(w, r, path+"?notice="+notice, http.StatusSeeOther)
}

func (p *Pages) home(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "home", &pageData{Title: "Contacts"})
}

func (p *Pages) list(w http.ResponseWriter, r *http.Request) {
	contacts, err := p.Store.List(r.Context())
	if err != nil {
		p.fail(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "list", &pageData{Title: "All Contacts", Contacts: contacts})
}

func (p *Pages) create(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "form", &pageData{
		Title: "Add New Contact",
		Form:  formData{Intake: Intake{Mode: Creating}},
	})
}

func (p *Pages) edit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	contact, err := p.Store.Get(r.Context(), id)
	switch {
	case errors.Is(err, ds.ErrObjectNotFound):
		p.redirect(w, r, "/contacts", "notfound", nil)
	case err != nil:
		p.fail(w, r, err)
	default:
		p.render(w, r, http.StatusOK, "form", &pageData{
			Title: "Edit Contact",
			Form:  formData{Intake: Intake{Mode: Editing, ID: id}, Fields: contact.ContactFields},
		})
	}
}

// submit is the single handler of the intake form.
func (p *Pages) submit(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	intake, err := parseIntake(r.PostForm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fields := ds.ContactFields{
		FirstName: r.PostForm.Get("firstName"),
		LastName:  r.PostForm.Get("lastName"),
		Email:     r.PostForm.Get("email"),
		Phone:     r.PostForm.Get("phone"),
		Address:   r.PostForm.Get("address"),
	}

	var path, notice string
	switch intake.Mode {
	case Creating:
		_, err = p.Store.Create(r.Context(), fields)
		path, notice = "/", "added"
	case Editing:
		_, err = p.Store.Update(r.Context(), intake.ID, fields)
		path, notice = "/contacts", "updated"
	}

	switch {
	case err == nil, errors.Is(err, ds.ErrPersistence):
		p.redirect(w, r, path, notice, err)
	case errors.Is(err, ds.ErrInvalidFields):
		title := "Add New Contact"
		if intake.Editing() {
			title = "Edit Contact"
		}
		p.render(w, r, http.StatusUnprocessableEntity, "form", &pageData{
			Title: title,
			Form:  formData{Intake: intake, Fields: fields, Error: "First name, last name, email and phone are required."},
		})
	case errors.Is(err, ds.ErrObjectNotFound):
		p.redirect(w, r, "/contacts", "notfound", nil)
	default:
		p.fail(w, r, err)
	}
}

// del performs no confirmation, the page asks for it before posting.
func (p *Pages) del(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	err = p.Store.Delete(r.Context(), id)
	if err != nil && !errors.Is(err, ds.ErrPersistence) {
		p.fail(w, r, err)
		return
	}
	p.redirect(w, r, "/contacts", "deleted", err)
}
