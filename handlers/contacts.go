package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	ds "github.com/oaiiae/contacts-directory/datastores"
)

type Contacts struct {
	Store        ds.ContactsStore
	ErrorHandler func(context.Context, error)
}

type ContactInput struct {
	FirstName string `json:"firstName"         minLength:"1" example:"Ada"`
	LastName  string `json:"lastName"          minLength:"1" example:"Lovelace"`
	Email     string `json:"email"             minLength:"1" example:"ada@example.com"`
	Phone     string `json:"phone"             minLength:"1" example:"+44 20 7946 0000"`
	Address   string `json:"address,omitempty"               example:"London"`
}

func (in *ContactInput) fields() ds.ContactFields {
	return ds.ContactFields{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Address:   in.Address,
	}
}

type ContactModel struct {
	ID ds.ContactID `json:"id" readOnly:"true" example:"1700000000000"`
	ContactInput
	CreatedAt time.Time  `json:"createdAt" readOnly:"true"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" readOnly:"true"`
}

func newContactModel(c *ds.Contact) ContactModel {
	return ContactModel{
		ID: c.ID,
		ContactInput: ContactInput{
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Email:     c.Email,
			Phone:     c.Phone,
			Address:   c.Address,
		},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// persistWarning is the Warning header value sent when a change was applied
// but could not be saved.
const persistWarning = `199 - "contact changed but not persisted"`

// storeError maps store errors to API errors. A persistence failure is not
// an error for the client: it only yields a warning.
func (h *Contacts) storeError(ctx context.Context, err error) (warning string, _ error) {
	switch {
	case err == nil:
		return "", nil
	case errors.Is(err, ds.ErrPersistence):
		if h.ErrorHandler != nil {
			h.ErrorHandler(ctx, err)
		}
		return persistWarning, nil
	case errors.Is(err, ds.ErrObjectNotFound):
		return "", huma.Error404NotFound("id not found", err)
	case errors.Is(err, ds.ErrInvalidFields):
		return "", huma.Error422UnprocessableEntity(err.Error(), err)
	default:
		return "", err
	}
}

func (h *Contacts) RegisterList(api huma.API) { // called by [huma.AutoRegister]
	huma.Get(api, "/",
		handlerWithErrorHandler(h.list, h.ErrorHandler),
		opID("list-contacts"),
		opErrors(http.StatusInternalServerError),
	)
}

type ContactsListOutput struct {
	Body []ContactModel
}

func (h *Contacts) list(ctx context.Context, _ *struct{}) (*ContactsListOutput, error) {
	contacts, err := h.Store.List(ctx)
	if err != nil {
		return nil, err
	}

	body := make([]ContactModel, 0, len(contacts))
	for i := range contacts {
		body = append(body, newContactModel(&contacts[i]))
	}

	return &ContactsListOutput{Body: body}, nil
}

func (h *Contacts) RegisterCreate(api huma.API) { // called by [huma.AutoRegister]
	huma.Post(api, "/",
		handlerWithErrorHandler(h.create, h.ErrorHandler),
		opID("create-contact"),
		opStatus(http.StatusCreated),
		opErrors(http.StatusUnprocessableEntity, http.StatusInternalServerError),
	)
}

type ContactOutput struct {
	Warning string `header:"Warning"`
	Body    ContactModel
}

func (h *Contacts) create(ctx context.Context, input *struct {
	Body ContactInput
}) (*ContactOutput, error) {
	contact, err := h.Store.Create(ctx, input.Body.fields())
	warning, err := h.storeError(ctx, err)
	if err != nil {
		return nil, err
	}
	return &ContactOutput{Warning: warning, Body: newContactModel(&contact)}, nil
}

func (h *Contacts) RegisterGet(api huma.API) { // called by [huma.AutoRegister]
	huma.Get(api, "/{id}",
		handlerWithErrorHandler(h.get, h.ErrorHandler),
		opID("get-contact"),
		opErrors(http.StatusNotFound, http.StatusInternalServerError),
	)
}

func (h *Contacts) get(ctx context.Context, input *struct {
	ID ds.ContactID `path:"id" doc:"ID of the contact to get"`
}) (*ContactOutput, error) {
	contact, err := h.Store.Get(ctx, input.ID)
	_, err = h.storeError(ctx, err)
	if err != nil {
		return nil, err
	}
	return &ContactOutput{Body: newContactModel(&contact)}, nil
}

func (h *Contacts) RegisterUpdate(api huma.API) { // called by [huma.AutoRegister]
	huma.Put(api, "/{id}",
		handlerWithErrorHandler(h.update, h.ErrorHandler),
		opID("update-contact"),
		opErrors(http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusInternalServerError),
	)
}

func (h *Contacts) update(ctx context.Context, input *struct {
	ID   ds.ContactID `path:"id" doc:"ID of the contact to update"`
	Body ContactInput
}) (*ContactOutput, error) {
	contact, err := h.Store.Update(ctx, input.ID, input.Body.fields())
	warning, err := h.storeError(ctx, err)
	if err != nil {
		return nil, err
	}
	return &ContactOutput{Warning: warning, Body: newContactModel(&contact)}, nil
}

func (h *Contacts) RegisterDelete(api huma.API) { // called by [huma.AutoRegister]
	huma.Delete(api, "/{id}",
		handlerWithErrorHandler(h.del, h.ErrorHandler),
		opID("delete-contact"),
		opStatus(http.StatusNoContent),
		opErrors(http.StatusInternalServerError),
	)
}

type ContactsDeleteOutput struct {
	Warning string `header:"Warning"`
}

func (h *Contacts) del(ctx context.Context, input *struct {
	ID ds.ContactID `path:"id" doc:"ID of the contact to delete"`
}) (*ContactsDeleteOutput, error) {
	err := h.Store.Delete(ctx, input.ID)
	warning, err := h.storeError(ctx, err)
	if err != nil {
		return nil, err
	}
	return &ContactsDeleteOutput{Warning: warning}, nil
}
