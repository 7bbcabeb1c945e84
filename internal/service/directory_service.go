package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/simplemailer/simplemailer/internal/config"
	"github.com/simplemailer/simplemailer/internal/identifier"
	"github.com/simplemailer/simplemailer/internal/logger"
	"github.com/simplemailer/simplemailer/internal/model"
	"github.com/simplemailer/simplemailer/internal/repository"
)

// RecipientStore is the persistence the directory needs. Both the
// Postgres and in-memory repositories satisfy it.
type RecipientStore interface {
	Upsert(ctx context.Context, name, email string) (*model.Recipient, bool, error)
	List(ctx context.Context, filter model.ListFilter) ([]*model.Recipient, error)
	FindByEmails(ctx context.Context, emails []string) ([]*model.Recipient, error)
	Get(ctx context.Context, field repository.Field, value string) (*model.Recipient, error)
	Update(ctx context.Context, field repository.Field, value string, patch model.RecipientPatch) (*model.Recipient, error)
	Delete(ctx context.Context, field repository.Field, value string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// DirectoryService manages mailing-list recipients. Batch operations run
// their items concurrently and return one outcome per input, in input order.
type DirectoryService struct {
	store        RecipientStore
	audit        auditTrail
	queryTimeout time.Duration
	log          *logger.Logger
}

// NewDirectoryService creates a new DirectoryService. audit may be nil.
func NewDirectoryService(store RecipientStore, audit AuditRecorder, cfg *config.Config, log *logger.Logger) *DirectoryService {
	l := log.WithComponent("directory")
	timeout := cfg.Store.QueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DirectoryService{
		store:        store,
		audit:        auditTrail{recorder: audit, log: l},
		queryTimeout: timeout,
		log:          l,
	}
}

// fanOut runs fn for every item concurrently and collects results by position
func fanOut[In, Out any](ctx context.Context, items []In, fn func(context.Context, In) Out) []Out {
	out := make([]Out, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item In) {
			defer wg.Done()
			out[i] = fn(ctx, item)
		}(i, item)
	}
	wg.Wait()
	return out
}

func (s *DirectoryService) itemContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// Add upserts each input by email
func (s *DirectoryService) Add(ctx context.Context, inputs []model.AddInput) []model.AddOutcome {
	return fanOut(ctx, inputs, s.addOne)
}

func (s *DirectoryService) addOne(ctx context.Context, in model.AddInput) model.AddOutcome {
	out := model.AddOutcome{Input: in}
	fail := func(err error) model.AddOutcome {
		out.Err, out.Error, out.Code = err, err.Error(), ErrorCode(err)
		return out
	}

	addr := model.NormalizeEmail(in.Email)
	if addr == "" {
		return fail(fmt.Errorf("%w: email is required", ErrValidation))
	}
	if !strings.Contains(addr, "@") {
		return fail(fmt.Errorf("%w: email %q is not an address", ErrValidation, addr))
	}
	name := model.NormalizeName(in.Name)

	ctx, cancel := s.itemContext(ctx)
	defer cancel()

	rec, created, err := s.store.Upsert(ctx, name, addr)
	if errors.Is(err, repository.ErrDuplicate) {
		// lost an insert race; the row now exists, so the retry updates it
		rec, created, err = s.store.Upsert(ctx, name, addr)
		if errors.Is(err, repository.ErrDuplicate) {
			err = fmt.Errorf("%w: %s already exists", ErrConflict, addr)
		}
	}
	if err != nil {
		s.log.Error().Err(err).Str("email", logger.RedactEmail(addr)).Msg("failed to add recipient")
		return fail(err)
	}

	out.Success = true
	out.Created = created
	out.Recipient = rec
	return out
}

// List returns recipients, newest first
func (s *DirectoryService) List(ctx context.Context, filter model.ListFilter) ([]*model.Recipient, error) {
	filter.Email = model.NormalizeEmail(filter.Email)
	filter.Name = strings.TrimSpace(filter.Name)
	recipients, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	return recipients, nil
}

// Get returns the recipient with the given directory id
func (s *DirectoryService) Get(ctx context.Context, id string) (*model.Recipient, error) {
	if !identifier.IsDirectoryID(id) {
		return nil, ErrInvalidIdentifier
	}
	rec, err := s.store.Get(ctx, repository.FieldID, strings.ToLower(strings.TrimSpace(id)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return rec, err
}

// FindByEmails returns the recipients among the given addresses
func (s *DirectoryService) FindByEmails(ctx context.Context, emails []string) ([]*model.Recipient, error) {
	normalized := make([]string, 0, len(emails))
	for _, e := range emails {
		if n := model.NormalizeEmail(e); n != "" {
			normalized = append(normalized, n)
		}
	}
	if len(normalized) == 0 {
		return []*model.Recipient{}, nil
	}
	return s.store.FindByEmails(ctx, normalized)
}

// Count returns the directory size
func (s *DirectoryService) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// Update applies partial updates. A directory id in ID takes precedence,
// then Email as the lookup key, then a uuid in ID. Only the fields set in
// Update are written.
func (s *DirectoryService) Update(ctx context.Context, inputs []model.UpdateInput) []model.UpdateOutcome {
	return fanOut(ctx, inputs, s.updateOne)
}

func (s *DirectoryService) updateOne(ctx context.Context, in model.UpdateInput) model.UpdateOutcome {
	out := model.UpdateOutcome{Input: in}
	fail := func(err error) model.UpdateOutcome {
		out.Err, out.Error, out.Code = err, err.Error(), ErrorCode(err)
		return out
	}

	id := strings.TrimSpace(in.ID)
	lookup := model.NormalizeEmail(in.Email)
	if id == "" && lookup == "" {
		return fail(fmt.Errorf("%w: id or email is required", ErrValidation))
	}

	var (
		field repository.Field
		key   string
	)
	switch {
	case identifier.IsDirectoryID(id):
		field, key = repository.FieldID, strings.ToLower(id)
	case lookup != "":
		field, key = repository.FieldEmail, lookup
	case identifier.IsStableUUID(id):
		field, key = repository.FieldUUID, strings.ToLower(id)
	default:
		return fail(fmt.Errorf("%w: %q", ErrInvalidIdentifier, id))
	}

	var (
		patch   model.RecipientPatch
		newAddr string
	)
	if in.Update.Name != nil {
		name := model.NormalizeName(*in.Update.Name)
		patch.Name = &name
	}
	if in.Update.Email != nil {
		newAddr = model.NormalizeEmail(*in.Update.Email)
		if newAddr == "" {
			return fail(fmt.Errorf("%w: email cannot be blank", ErrValidation))
		}
		patch.Email = &newAddr
	}

	ctx, cancel := s.itemContext(ctx)
	defer cancel()

	rec, err := s.store.Update(ctx, field, key, patch)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(fmt.Errorf("%w: no recipient with %s %q", ErrNotFound, field, key))
	case errors.Is(err, repository.ErrDuplicate):
		return fail(fmt.Errorf("%w: %s belongs to another recipient", ErrConflict, newAddr))
	case err != nil:
		s.log.Error().Err(err).Str("field", string(field)).Msg("failed to update recipient")
		return fail(err)
	}

	out.Success = true
	out.Recipient = rec
	return out
}

// Remove deletes each identified recipient. Unknown but well-formed
// identifiers succeed with a zero count.
func (s *DirectoryService) Remove(ctx context.Context, identifiers []string) []model.RemoveOutcome {
	return fanOut(ctx, identifiers, s.removeOne)
}

func (s *DirectoryService) removeOne(ctx context.Context, raw string) model.RemoveOutcome {
	v := strings.TrimSpace(raw)
	var (
		field repository.Field
		key   string
	)
	switch identifier.Classify(v) {
	case identifier.Email:
		field, key = repository.FieldEmail, model.NormalizeEmail(v)
	case identifier.DirectoryID:
		field, key = repository.FieldID, strings.ToLower(v)
	case identifier.StableUUID:
		field, key = repository.FieldUUID, strings.ToLower(v)
	default:
		err := fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
		return model.RemoveOutcome{Identifier: raw, Err: err, Error: err.Error(), Code: ErrorCode(err)}
	}

	out := s.delete(ctx, raw, field, key)
	if out.DeletedCount > 0 {
		resourceID := key
		if field == repository.FieldEmail {
			resourceID = logger.RedactEmail(key)
		}
		s.audit.record(ctx, model.AuditActionRecipientRemoved, resourceID, map[string]interface{}{"by": string(field)})
	}
	return out
}

// RemoveByUUID deletes the recipient holding token, which must be a uuid.
func (s *DirectoryService) RemoveByUUID(ctx context.Context, token string) model.RemoveOutcome {
	v := strings.TrimSpace(token)
	if !identifier.IsStableUUID(v) {
		err := fmt.Errorf("%w: %q", ErrInvalidIdentifier, token)
		return model.RemoveOutcome{Identifier: token, Err: err, Error: err.Error(), Code: ErrorCode(err)}
	}
	return s.delete(ctx, token, repository.FieldUUID, strings.ToLower(v))
}

func (s *DirectoryService) delete(ctx context.Context, raw string, field repository.Field, key string) model.RemoveOutcome {
	out := model.RemoveOutcome{Identifier: raw}

	ctx, cancel := s.itemContext(ctx)
	defer cancel()

	n, err := s.store.Delete(ctx, field, key)
	if err != nil {
		s.log.Error().Err(err).Str("field", string(field)).Msg("failed to remove recipient")
		out.Err, out.Error, out.Code = err, err.Error(), ErrorCode(err)
		return out
	}
	out.Success = true
	out.DeletedCount = n
	return out
}
