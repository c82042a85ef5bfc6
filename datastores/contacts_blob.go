package datastores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/oaiiae/contacts-directory/blobstores"
)

// ContactsBlob implements [ContactsStore]. It keeps the collection in memory
// and writes all of it under a single key of a [blobstores.Store] after
// every mutation.
type ContactsBlob struct {
	blobs blobstores.Store
	key   string
	now   func() time.Time

	mu       sync.Mutex
	contacts []Contact
	lastID   ContactID
	dirty    bool

	persisted *metrics.Counter
	failures  *metrics.Counter
}

var _ ContactsStore = (*ContactsBlob)(nil)

// NewContactsBlob returns an empty store, call [ContactsBlob.Load] to read
// the persisted collection. Metrics are registered on set when not nil.
func NewContactsBlob(blobs blobstores.Store, key string, set *metrics.Set) *ContactsBlob {
	if set == nil {
		set = metrics.NewSet()
	}
	s := &ContactsBlob{
		blobs:     blobs,
		key:       key,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		persisted: set.GetOrCreateCounter(`contacts_persist_total`),
		failures:  set.GetOrCreateCounter(`contacts_persist_failures_total`),
	}
	set.GetOrCreateGauge(`contacts_count`, func() float64 {
		s.mu.Lock()
		defer s.mu.Unlock()
		return float64(len(s.contacts))
	})
	return s
}

// Load replaces the collection with the persisted one. A missing key loads
// an empty collection. Malformed data also loads an empty collection and
// returns an error wrapping [ErrMalformedData]; any other error means the
// blob store could not be read and the collection is left untouched.
func (s *ContactsBlob) Load(ctx context.Context) error {
	b, err := s.blobs.Get(ctx, s.key)
	if errors.Is(err, blobstores.ErrNotExist) {
		b, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("store: load %q: %w", s.key, err)
	}

	var contacts []Contact
	if len(b) > 0 {
		err = json.Unmarshal(b, &contacts)
		if err == nil {
			err = checkLoaded(contacts)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
	if err != nil {
		s.contacts, s.lastID = nil, 0
		return fmt.Errorf("%w: %q: %w", ErrMalformedData, s.key, err)
	}
	s.contacts, s.lastID = contacts, 0
	for _, c := range contacts {
		s.lastID = max(s.lastID, c.ID)
	}
	return nil
}

// checkLoaded rejects ids that are not positive, unique and below
// [math.MaxInt64]. Records edited by older versions lost their createdAt,
// it is backfilled from updatedAt.
func checkLoaded(contacts []Contact) error {
	seen := make(map[ContactID]struct{}, len(contacts))
	for i := range contacts {
		c := &contacts[i]
		if c.ID <= 0 || c.ID == math.MaxInt64 {
			return fmt.Errorf("invalid id %d", c.ID)
		}
		if _, ok := seen[c.ID]; ok {
			return fmt.Errorf("duplicate id %d", c.ID)
		}
		seen[c.ID] = struct{}{}

		if c.CreatedAt.IsZero() {
			if c.UpdatedAt == nil || c.UpdatedAt.IsZero() {
				return fmt.Errorf("id %d: missing createdAt", c.ID)
			}
			c.CreatedAt = *c.UpdatedAt
		}
	}
	return nil
}

// nextID is timestamp shaped but strictly increasing.
func (s *ContactsBlob) nextID(now time.Time) ContactID {
	s.lastID = max(now.UnixMilli(), s.lastID+1)
	return s.lastID
}

func (s *ContactsBlob) Create(ctx context.Context, f ContactFields) (Contact, error) {
	err := f.Validate()
	if err != nil {
		return Contact{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	c := Contact{ID: s.nextID(now), ContactFields: f, CreatedAt: now}
	s.contacts = append(s.contacts, c)
	return c.clone(), s.persist(ctx)
}

func (s *ContactsBlob) List(_ context.Context) ([]Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contacts := make([]Contact, 0, len(s.contacts))
	for i := range s.contacts {
		contacts = append(contacts, s.contacts[i].clone())
	}
	return contacts, nil
}

func (s *ContactsBlob) index(id ContactID) int {
	return slices.IndexFunc(s.contacts, func(c Contact) bool { return c.ID == id })
}

func (s *ContactsBlob) Get(_ context.Context, id ContactID) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return Contact{}, ErrObjectNotFound
	}
	return s.contacts[i].clone(), nil
}

func (s *ContactsBlob) Update(ctx context.Context, id ContactID, f ContactFields) (Contact, error) {
	err := f.Validate()
	if err != nil {
		return Contact{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return Contact{}, ErrObjectNotFound
	}
	c := &s.contacts[i]
	updatedAt := s.now()
	if updatedAt.Before(c.CreatedAt) {
		updatedAt = c.CreatedAt
	}
	c.ContactFields = f
	c.UpdatedAt = &updatedAt
	return c.clone(), s.persist(ctx)
}

// Delete is idempotent: a missing id is not an error and writes nothing.
func (s *ContactsBlob) Delete(ctx context.Context, id ContactID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return nil
	}
	s.contacts = slices.Delete(s.contacts, i, i+1)
	return s.persist(ctx)
}

// Flush persists the collection if the last write failed.
func (s *ContactsBlob) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.persist(ctx)
}

// persist writes the whole collection. Callers hold mu. The mutation is
// already applied, so the write outlives a cancelled ctx.
func (s *ContactsBlob) persist(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	contacts := s.contacts
	if contacts == nil {
		contacts = []Contact{}
	}
	b, err := json.Marshal(contacts)
	if err == nil {
		err = s.blobs.Set(ctx, s.key, b)
	}
	if err != nil {
		s.dirty = true
		s.failures.Inc()
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.dirty = false
	s.persisted.Inc()
	return nil
}
