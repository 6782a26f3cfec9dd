// Package token binds rendered forms to the pending action the server offered.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/operion-forms/pkg/models"
	"github.com/dukex/operion-forms/pkg/session"
	"github.com/google/uuid"
)

const keyPrefix = "token:"

// ErrTokenNotFound indicates the token id is unknown, expired or already consumed.
var ErrTokenNotFound = errors.New("token not found")

// IDGenerator produces unguessable token ids.
type IDGenerator func() (string, error)

// RandomID draws a version 4 UUID from crypto/rand.
func RandomID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// Registry stores pending action tokens in a session scoped store.
type Registry struct {
	store session.Store
	newID IDGenerator
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDGenerator replaces the id source.
func WithIDGenerator(generator IDGenerator) Option {
	return func(r *Registry) {
		r.newID = generator
	}
}

// NewRegistry creates a registry over the caller's session store.
func NewRegistry(store session.Store, opts ...Option) *Registry {
	r := &Registry{
		store: store,
		newID: RandomID,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register stores pending for instance and returns the hidden field that
// carries the token id in the rendered form.
func (r *Registry) Register(ctx context.Context, instance *models.WorkflowInstance, pending models.PendingAction) (models.FieldDescriptor, error) {
	id, err := r.newID()
	if err != nil {
		return models.FieldDescriptor{}, fmt.Errorf("failed to generate token id: %w", err)
	}

	token := models.PendingActionToken{
		ID:           id,
		WorkflowID:   instance.ID,
		WorkflowType: instance.Type,
		LastUpdate:   instance.LastUpdate,
		Action:       pending.Action,
		Fields:       pending.Fields,
		Handler:      pending.Handler,
	}

	data, err := json.Marshal(token)
	if err != nil {
		return models.FieldDescriptor{}, fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := r.store.Set(ctx, keyPrefix+id, data); err != nil {
		return models.FieldDescriptor{}, fmt.Errorf("failed to store token: %w", err)
	}

	return models.HiddenField(models.ParamToken, id), nil
}

// Fetch returns the token stored under id. With purge set the entry is read
// and deleted in one atomic step, so only one caller can ever consume it.
func (r *Registry) Fetch(ctx context.Context, id string, purge bool) (*models.PendingActionToken, error) {
	if id == "" {
		return nil, ErrTokenNotFound
	}

	var (
		data []byte
		err  error
	)

	if purge {
		data, err = r.store.GetDel(ctx, keyPrefix+id)
	} else {
		data, err = r.store.Get(ctx, keyPrefix+id)
	}

	if err != nil {
		if session.IsNotFound(err) {
			return nil, ErrTokenNotFound
		}

		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var token models.PendingActionToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &token, nil
}

// Purge deletes the token. Unknown ids are ignored.
func (r *Registry) Purge(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, keyPrefix+id); err != nil && !session.IsNotFound(err) {
		return fmt.Errorf("failed to purge token: %w", err)
	}

	return nil
}
