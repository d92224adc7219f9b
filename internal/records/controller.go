package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"nursery-tracker/internal/domain"
)

// placeholderUserID is sent on every create body. The backend derives the
// real owner from the bearer token and overwrites this value; whether the
// field should exist in the contract at all is an open question with the
// backend team.
const placeholderUserID = "temp"

const dateLayout = "2006-01-02"

// ErrDeleteCancelled is returned when the confirmer declines a delete. No
// network call has been made.
var ErrDeleteCancelled = errors.New("delete cancelled")

// RecordAPI is the slice of the API client a controller needs.
type RecordAPI interface {
	ListRecords(ctx context.Context, path string) ([]domain.Record, error)
	CreateRecord(ctx context.Context, path string, body map[string]any) (domain.Record, error)
	DeleteRecord(ctx context.Context, path, id string) error
}

// Confirmer decides whether a delete may proceed. The CLI prompts the user;
// tests substitute a canned answer.
type Confirmer func(id string) bool

// ValidationError is a client-side input rejection. It is raised before any
// network traffic.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Controller implements the list/create/delete contract for one entity. Six
// instances of this one type cover all record categories; nothing here is
// entity-specific beyond the descriptor.
//
// The cached list is transient and replaced wholesale on every successful
// Load. Overlapping loads are not sequenced: the last response to land wins.
type Controller struct {
	entity  Entity
	api     RecordAPI
	confirm Confirmer
	logger  *logrus.Logger

	mu       sync.Mutex
	records  []domain.Record
	formOpen bool
	form     map[string]string
}

func NewController(entity Entity, recordAPI RecordAPI, confirm Confirmer, logger *logrus.Logger) *Controller {
	if logger == nil {
		logger = logrus.New()
	}
	return &Controller{
		entity:  entity,
		api:     recordAPI,
		confirm: confirm,
		logger:  logger,
		form:    map[string]string{},
	}
}

// Entity returns the descriptor this controller was instantiated with.
func (c *Controller) Entity() Entity {
	return c.entity
}

// Records returns a copy of the cached list.
func (c *Controller) Records() []domain.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Record, len(c.records))
	copy(out, c.records)
	return out
}

// Load fetches the full collection and replaces the cache. On failure the
// previous cache stays untouched and the error is returned; there is no
// automatic retry.
func (c *Controller) Load(ctx context.Context) error {
	fetched, err := c.api.ListRecords(ctx, c.entity.Path)
	if err != nil {
		c.logger.WithError(err).WithField("entity", c.entity.Name).Warn("load records")
		return err
	}

	c.mu.Lock()
	c.records = fetched
	c.mu.Unlock()
	return nil
}

// OpenForm starts a fresh creation form, discarding any previous values.
func (c *Controller) OpenForm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.formOpen = true
	c.form = map[string]string{}
}

// CloseForm discards the form and its values.
func (c *Controller) CloseForm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.formOpen = false
	c.form = map[string]string{}
}

// FormOpen reports whether a creation form is active.
func (c *Controller) FormOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.formOpen
}

// SetField records a raw form value. Validation happens at Create time.
func (c *Controller) SetField(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form[key] = value
}

// FormValues returns a copy of the current form contents.
func (c *Controller) FormValues() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.form))
	for k, v := range c.form {
		out[k] = v
	}
	return out
}

// Create validates the form and submits it. Invalid input returns a
// *ValidationError without issuing any network call. A backend failure
// leaves the form open with its values intact. On success the form is closed
// and cleared and the list re-fetched; the displayed list never updates
// optimistically.
func (c *Controller) Create(ctx context.Context) error {
	c.mu.Lock()
	values := make(map[string]string, len(c.form))
	for k, v := range c.form {
		values[k] = v
	}
	c.mu.Unlock()

	body, err := buildBody(c.entity, values)
	if err != nil {
		return err
	}

	record, err := c.api.CreateRecord(ctx, c.entity.Path, body)
	if err != nil {
		c.logger.WithError(err).WithField("entity", c.entity.Name).Warn("create record")
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"entity": c.entity.Name,
		"id":     record.ID,
	}).Info("record created")

	c.CloseForm()
	return c.Load(ctx)
}

// Delete asks the confirmer first; a declined confirmation issues no network
// call and returns ErrDeleteCancelled. A confirmed delete re-fetches the
// list on success and never removes the item optimistically.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if c.confirm == nil || !c.confirm(id) {
		return ErrDeleteCancelled
	}

	if err := c.api.DeleteRecord(ctx, c.entity.Path, id); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"entity": c.entity.Name,
			"id":     id,
		}).Warn("delete record")
		return err
	}

	return c.Load(ctx)
}

// buildBody validates raw form values against the entity's field set and
// assembles the JSON create body.
func buildBody(entity Entity, values map[string]string) (map[string]any, error) {
	body := make(map[string]any, len(entity.Fields)+1)

	for _, field := range entity.Fields {
		raw := strings.TrimSpace(values[field.Key])
		if raw == "" {
			return nil, &ValidationError{Field: field.Key, Reason: "is required"}
		}

		switch field.Kind {
		case FieldText:
			body[field.Key] = raw
		case FieldDate:
			if _, err := time.Parse(dateLayout, raw); err != nil {
				return nil, &ValidationError{Field: field.Key, Reason: "must be a date in YYYY-MM-DD form"}
			}
			body[field.Key] = raw
		case FieldInt:
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return nil, &ValidationError{Field: field.Key, Reason: "must be a non-negative whole number"}
			}
			body[field.Key] = n
		case FieldFloat:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil || f < 0 {
				return nil, &ValidationError{Field: field.Key, Reason: "must be a non-negative number"}
			}
			body[field.Key] = f
		}
	}

	body["user_id"] = placeholderUserID
	return body, nil
}
