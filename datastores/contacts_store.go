package datastores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	// ContactID is assigned at creation and never changes.
	ContactID = int64

	// ContactFields are the user-editable fields of a [Contact].
	ContactFields struct {
		FirstName string `json:"firstName" yaml:"firstName"`
		LastName  string `json:"lastName"  yaml:"lastName"`
		Email     string `json:"email"     yaml:"email"`
		Phone     string `json:"phone"     yaml:"phone"`
		Address   string `json:"address"   yaml:"address"`
	}

	Contact struct {
		ID            ContactID `json:"id" yaml:"id"`
		ContactFields `yaml:",inline"`
		CreatedAt     time.Time  `json:"createdAt"           yaml:"createdAt"`
		UpdatedAt     *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
	}
)

// ContactsStore owns an ordered collection of contacts.
//
// Mutating methods may return an error wrapping [ErrPersistence] together
// with a valid result: the collection was changed but could not be saved.
type ContactsStore interface {
	Create(context.Context, ContactFields) (Contact, error)
	List(context.Context) ([]Contact, error)
	Get(context.Context, ContactID) (Contact, error)
	Update(context.Context, ContactID, ContactFields) (Contact, error)
	Delete(context.Context, ContactID) error
}

var (
	ErrObjectNotFound = errors.New("store: object not found")
	ErrInvalidFields  = errors.New("store: invalid fields")
	ErrPersistence    = errors.New("store: changes not persisted")
	ErrMalformedData  = errors.New("store: malformed persisted data")
)

// Validate reports the required fields left blank.
func (f *ContactFields) Validate() error {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"firstName", f.FirstName},
		{"lastName", f.LastName},
		{"email", f.Email},
		{"phone", f.Phone},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidFields, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Contact) clone() Contact {
	cc := *c
	if c.UpdatedAt != nil {
		updatedAt := *c.UpdatedAt
		cc.UpdatedAt = &updatedAt
	}
	return cc
}
