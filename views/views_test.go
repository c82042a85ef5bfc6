package views

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oaiiae/contacts-directory/blobstores"
	ds "github.com/oaiiae/contacts-directory/datastores"
)

type unsavedBlobs struct{ *blobstores.Inmem }

func (unsavedBlobs) Set(context.Context, string, []byte) error { return blobstores.ErrUnavailable }

func newTestPages(t *testing.T, blobs blobstores.Store) (*Pages, *ds.ContactsBlob) {
	t.Helper()
	store := ds.NewContactsBlob(blobs, "contacts", nil)
	require.NoError(t, store.Load(context.Background()))
	return &Pages{Store: store}, store
}

func get(p http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func post(p http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)
	return rec
}

func adaForm(mode string) url.Values {
	return url.Values{
		"mode":      {mode},
		"firstName": {"Ada"},
		"lastName":  {"Lovelace"},
		"email":     {"a@x.com"},
		"phone":     {"123"},
		"address":   {""},
	}
}

func TestParseIntake(t *testing.T) {
	tests := []struct {
		form    url.Values
		want    Intake
		wantErr bool
	}{
		{form: url.Values{"mode": {"create"}}, want: Intake{Mode: Creating}},
		{form: url.Values{"mode": {"create"}, "id": {"7"}}, want: Intake{Mode: Creating}},
		{form: url.Values{"mode": {"edit"}, "id": {"7"}}, want: Intake{Mode: Editing, ID: 7}},
		{form: url.Values{"mode": {"edit"}}, wantErr: true},
		{form: url.Values{"mode": {"edit"}, "id": {"x"}}, wantErr: true},
		{form: url.Values{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.form.Encode(), func(t *testing.T) {
			got, err := parseIntake(tt.form)
			if tt.wantErr {
				require.ErrorIs(t, err, errBadIntake)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPagesHome(t *testing.T) {
	p, _ := newTestPages(t, blobstores.NewInmem())

	rec := get(p, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/contacts/new"`)
	assert.NotContains(t, rec.Body.String(), `class="notification"`)

	rec = get(p, "/?notice=added")
	assert.Contains(t, rec.Body.String(), "Contact added successfully!")

	rec = get(p, "/?notice=bogus")
	assert.NotContains(t, rec.Body.String(), `class="notification"`)

	rec = get(p, "/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPagesEmptyList(t *testing.T) {
	p, _ := newTestPages(t, blobstores.NewInmem())
	rec := get(p, "/contacts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No contacts found")
}

func TestPagesLifecycle(t *testing.T) {
	p, store := newTestPages(t, blobstores.NewInmem())
	ctx := context.Background()

	rec := get(p, "/contacts/new")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="mode" value="create"`)
	assert.NotContains(t, rec.Body.String(), `name="id"`)

	rec = post(p, "/contacts/form", adaForm("create"))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/?notice=added", rec.Header().Get("Location"))

	contacts, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	id := strconv.FormatInt(contacts[0].ID, 10)

	rec = get(p, "/contacts")
	assert.Contains(t, rec.Body.String(), "Ada Lovelace")
	assert.Contains(t, rec.Body.String(), `href="/contacts/`+id+`/edit"`)
	assert.Contains(t, rec.Body.String(), `action="/contacts/`+id+`/delete"`)

	rec = get(p, "/contacts/"+id+"/edit")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="mode" value="edit"`)
	assert.Contains(t, rec.Body.String(), `name="id" value="`+id+`"`)
	assert.Contains(t, rec.Body.String(), `value="Lovelace"`)

	form := adaForm("edit")
	form.Set("id", id)
	form.Set("lastName", "King")
	form.Set("address", "London")
	rec = post(p, "/contacts/form", form)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/contacts?notice=updated", rec.Header().Get("Location"))

	contact, err := store.Get(ctx, contacts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "King", contact.LastName)
	assert.Equal(t, "London", contact.Address)
	assert.NotNil(t, contact.UpdatedAt)

	rec = post(p, "/contacts/"+id+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/contacts?notice=deleted", rec.Header().Get("Location"))
	rec = post(p, "/contacts/"+id+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	contacts, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestPagesSubmitInvalid(t *testing.T) {
	p, store := newTestPages(t, blobstores.NewInmem())

	form := adaForm("create")
	form.Set("email", " ")
	rec := post(p, "/contacts/form", form)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "are required")
	assert.Contains(t, rec.Body.String(), `value="Ada"`, "entered values are kept")

	contacts, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, contacts)

	rec = post(p, "/contacts/form", url.Values{"mode": {"rename"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPagesEditMissing(t *testing.T) {
	p, _ := newTestPages(t, blobstores.NewInmem())

	rec := get(p, "/contacts/42/edit")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/contacts?notice=notfound", rec.Header().Get("Location"))

	form := adaForm("edit")
	form.Set("id", "42")
	rec = post(p, "/contacts/form", form)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/contacts?notice=notfound", rec.Header().Get("Location"))
}

func TestPagesUnsaved(t *testing.T) {
	p, store := newTestPages(t, unsavedBlobs{blobstores.NewInmem()})

	rec := post(p, "/contacts/form", adaForm("create"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?notice=unsaved", rec.Header().Get("Location"))

	contacts, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}
