package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/simplemailer/simplemailer/internal/identifier"
	"github.com/simplemailer/simplemailer/internal/model"
)

// MemoryRecipientRepository keeps recipients in process memory. Uniqueness of
// email and uuid is enforced under a single mutex.
type MemoryRecipientRepository struct {
	mu      sync.RWMutex
	byID    map[string]*model.Recipient
	byEmail map[string]string
	byUUID  map[string]string
	now     func() time.Time
}

// NewMemoryRecipientRepository creates an empty in-memory store
func NewMemoryRecipientRepository() *MemoryRecipientRepository {
	return &MemoryRecipientRepository{
		byID:    make(map[string]*model.Recipient),
		byEmail: make(map[string]string),
		byUUID:  make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Upsert inserts a recipient keyed by email, or overwrites the existing one's name
func (r *MemoryRecipientRepository) Upsert(ctx context.Context, name, email string) (*model.Recipient, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if id, ok := r.byEmail[email]; ok {
		rec := r.byID[id]
		rec.Name = name
		rec.UpdatedAt = now
		return copyRecipient(rec), false, nil
	}

	rec := &model.Recipient{
		ID:        identifier.NewDirectoryID(),
		UUID:      uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, ok := r.byID[rec.ID]; ok {
		return nil, false, ErrDuplicate
	}
	r.byID[rec.ID] = rec
	r.byEmail[rec.Email] = rec.ID
	r.byUUID[rec.UUID] = rec.ID
	return copyRecipient(rec), true, nil
}

// List returns recipients matching the filter, newest first
func (r *MemoryRecipientRepository) List(ctx context.Context, filter model.ListFilter) ([]*model.Recipient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(filter.Name)
	out := make([]*model.Recipient, 0, len(r.byID))
	for _, rec := range r.byID {
		if filter.Email != "" && rec.Email != filter.Email {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(rec.Name), needle) {
			continue
		}
		out = append(out, copyRecipient(rec))
	}
	sortNewestFirst(out)
	return out, nil
}

// FindByEmails returns the recipients whose email is in the given set
func (r *MemoryRecipientRepository) FindByEmails(ctx context.Context, emails []string) ([]*model.Recipient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Recipient, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		if id, ok := r.byEmail[e]; ok {
			out = append(out, copyRecipient(r.byID[id]))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Get retrieves a single recipient by a unique field
func (r *MemoryRecipientRepository) Get(ctx context.Context, field Field, value string) (*model.Recipient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, err := r.lookup(field, value)
	if err != nil {
		return nil, err
	}
	return copyRecipient(rec), nil
}

// Update applies the non-nil fields of patch to the recipient matched by field
func (r *MemoryRecipientRepository) Update(ctx context.Context, field Field, value string, patch model.RecipientPatch) (*model.Recipient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.lookup(field, value)
	if err != nil {
		return nil, err
	}
	if patch.Email != nil && *patch.Email != rec.Email {
		if _, taken := r.byEmail[*patch.Email]; taken {
			return nil, ErrDuplicate
		}
		delete(r.byEmail, rec.Email)
		rec.Email = *patch.Email
		r.byEmail[rec.Email] = rec.ID
	}
	if patch.Name != nil {
		rec.Name = *patch.Name
	}
	rec.UpdatedAt = r.now()
	return copyRecipient(rec), nil
}

// Delete removes the recipient matched by field and returns the number removed
func (r *MemoryRecipientRepository) Delete(ctx context.Context, field Field, value string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.lookup(field, value)
	if err == ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	delete(r.byID, rec.ID)
	delete(r.byEmail, rec.Email)
	delete(r.byUUID, rec.UUID)
	return 1, nil
}

// Count returns the number of recipients
func (r *MemoryRecipientRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

// lookup must be called with the lock held
func (r *MemoryRecipientRepository) lookup(field Field, value string) (*model.Recipient, error) {
	var id string
	switch field {
	case FieldID:
		id = value
	case FieldEmail:
		id = r.byEmail[value]
	case FieldUUID:
		// uuid columns compare case-insensitively in Postgres
		id = r.byUUID[strings.ToLower(value)]
	default:
		_, err := field.column()
		return nil, err
	}
	rec, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func copyRecipient(rec *model.Recipient) *model.Recipient {
	c := *rec
	return &c
}

func sortNewestFirst(recs []*model.Recipient) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID > recs[j].ID
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}
