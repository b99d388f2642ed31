// Package store abstracts the hosted document database behind the query
// primitives the panel needs: equality and containment filters, descending
// sort by creation time, limit, opaque start-after cursors, server-side
// counts, and atomic batch writes.
package store

import (
	"context"
	"errors"

	"github.com/propdesk/leadadmin/pkg/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrBadCursor is returned for a cursor that cannot be decoded.
	ErrBadCursor = errors.New("malformed page cursor")
	// ErrBatchTooLarge is returned when a batch write exceeds MaxBatch
	// items and therefore cannot run as a single transaction.
	ErrBatchTooLarge = errors.New("batch exceeds transaction limit")
)

// MaxBatch is the largest batch BatchPut and BulkAssign accept, the
// DynamoDB TransactWriteItems item cap. Anything larger could not commit
// atomically.
const MaxBatch = 100

// Cursor is an opaque reference to a record's position in the ordering.
// The empty cursor means "start of ordering".
type Cursor string

// LeadQuery selects a page of leads ordered by date_time descending.
type LeadQuery struct {
	// AssignedTo, when set, constrains to leads whose assigned_to list
	// contains this user.
	AssignedTo string
	// Limit is the page size. Required for List, ignored by Count.
	Limit int
	// StartAfter resumes after a previously returned cursor.
	StartAfter Cursor
}

// LeadPage is one page of query results. Next is empty when the store has
// no further records.
type LeadPage struct {
	Leads []*models.Lead
	Next  Cursor
}

// LeadStore is the record-store client for the leads collection.
type LeadStore interface {
	List(ctx context.Context, q LeadQuery) (*LeadPage, error)
	Count(ctx context.Context, q LeadQuery) (int, error)
	Get(ctx context.Context, id string) (*models.Lead, error)
	Put(ctx context.Context, lead *models.Lead) error
	Update(ctx context.Context, id string, upd *models.LeadUpdate) error
	Delete(ctx context.Context, id string) error

	// BatchPut inserts all leads in one transaction; on error nothing is
	// committed. Batches beyond MaxBatch fail with ErrBatchTooLarge.
	BatchPut(ctx context.Context, leads []*models.Lead) error
	// BulkAssign atomically replaces assigned_to on every id; on error no
	// lead is reassigned. Capped at MaxBatch ids.
	BulkAssign(ctx context.Context, ids []string, assignee string) error
}

// UserStore is the user-directory client.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListByRole(ctx context.Context, role string) ([]*models.User, error)
	PutUser(ctx context.Context, u *models.User) error
}
