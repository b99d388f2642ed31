package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"

	"github.com/propdesk/leadadmin/pkg/models"
)

// Memory is an in-process LeadStore/UserStore with the same ordering and
// atomicity contract as the DynamoDB store. It backs service tests the way
// an in-memory database would.
type Memory struct {
	mu    sync.RWMutex
	leads map[string]*models.Lead
	users map[string]*models.User

	// CountErr, when set, makes Count fail. Used to exercise the
	// count-unknown degradation path.
	CountErr error
	// ListErr, when set, makes List fail once and then clears itself.
	ListErr error
	// ListHook, when set, runs while a List call is in flight, before
	// the page is assembled. Used to interleave a concurrent reload
	// with a fetch.
	ListHook func()
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		leads: make(map[string]*models.Lead),
		users: make(map[string]*models.User),
	}
}

func cloneLead(l *models.Lead) *models.Lead {
	c := *l
	c.AssignedTo = append([]string(nil), l.AssignedTo...)
	c.Notes = append([]string(nil), l.Notes...)
	return &c
}

// ordered returns all leads matching the assignee constraint, newest first.
func (m *Memory) ordered(assignedTo string) []*models.Lead {
	leads := make([]*models.Lead, 0, len(m.leads))
	for _, l := range m.leads {
		if assignedTo != "" && !l.IsAssignedTo(assignedTo) {
			continue
		}
		leads = append(leads, l)
	}
	sort.Slice(leads, func(i, j int) bool {
		if !leads[i].DateTime.Equal(leads[j].DateTime) {
			return leads[i].DateTime.After(leads[j].DateTime)
		}
		return leads[i].ID < leads[j].ID
	})
	return leads
}

func memCursor(id string) Cursor {
	return Cursor(base64.RawURLEncoding.EncodeToString([]byte(id)))
}

func memCursorID(c Cursor) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil || len(raw) == 0 {
		return "", ErrBadCursor
	}
	return string(raw), nil
}

// List returns one page ordered by date_time descending.
func (m *Memory) List(ctx context.Context, q LeadQuery) (*LeadPage, error) {
	m.mu.Lock()
	if m.ListErr != nil {
		err := m.ListErr
		m.ListErr = nil
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()

	if m.ListHook != nil {
		m.ListHook()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ordered := m.ordered(q.AssignedTo)

	start := 0
	if q.StartAfter != "" {
		afterID, err := memCursorID(q.StartAfter)
		if err != nil {
			return nil, err
		}
		found := false
		for i, l := range ordered {
			if l.ID == afterID {
				start = i + 1
				found = true
				break
			}
		}
		if !found {
			return &LeadPage{Leads: []*models.Lead{}}, nil
		}
	}

	end := len(ordered)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	page := &LeadPage{Leads: make([]*models.Lead, 0, end-start)}
	for _, l := range ordered[start:end] {
		c := cloneLead(l)
		c.Normalize()
		page.Leads = append(page.Leads, c)
	}
	if end < len(ordered) && len(page.Leads) > 0 {
		page.Next = memCursor(page.Leads[len(page.Leads)-1].ID)
	}
	return page, nil
}

// Count counts leads matching the assignee constraint.
func (m *Memory) Count(ctx context.Context, q LeadQuery) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return len(m.ordered(q.AssignedTo)), nil
}

// Get fetches a lead by id.
func (m *Memory) Get(ctx context.Context, id string) (*models.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneLead(l)
	c.Normalize()
	return c, nil
}

// Put inserts or replaces a lead.
func (m *Memory) Put(ctx context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		return fmt.Errorf("lead id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[lead.ID] = cloneLead(lead)
	return nil
}

// Update applies a partial update.
func (m *Memory) Update(ctx context.Context, id string, upd *models.LeadUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return ErrNotFound
	}
	if upd.DateOfCalling != nil {
		l.DateOfCalling = *upd.DateOfCalling
	}
	if upd.Followup1 != nil {
		l.Followup1 = *upd.Followup1
	}
	if upd.Followup2 != nil {
		l.Followup2 = *upd.Followup2
	}
	if upd.Followup3 != nil {
		l.Followup3 = *upd.Followup3
	}
	if upd.Status != nil {
		l.Status = *upd.Status
	}
	if upd.Notes != nil {
		l.Notes = append([]string(nil), *upd.Notes...)
	}
	if upd.AssignedTo != nil {
		l.AssignedTo = append([]string(nil), *upd.AssignedTo...)
	}
	if upd.LeadColor != nil {
		l.LeadColor = *upd.LeadColor
	}
	l.UpdatedAt = upd.UpdatedAt
	return nil
}

// Delete removes a lead.
func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leads[id]; !ok {
		return ErrNotFound
	}
	delete(m.leads, id)
	return nil
}

// BatchPut inserts all leads or none. A duplicate or empty id fails the
// whole batch before anything is committed.
func (m *Memory) BatchPut(ctx context.Context, leads []*models.Lead) error {
	if len(leads) > MaxBatch {
		return fmt.Errorf("batch inserting %d leads: %w (max %d)", len(leads), ErrBatchTooLarge, MaxBatch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range leads {
		if l.ID == "" {
			return fmt.Errorf("lead id is required")
		}
		if _, exists := m.leads[l.ID]; exists {
			return fmt.Errorf("lead %s already exists", l.ID)
		}
	}
	for _, l := range leads {
		m.leads[l.ID] = cloneLead(l)
	}
	return nil
}

// BulkAssign reassigns every id or none. A missing id fails the whole
// batch with no changes applied.
func (m *Memory) BulkAssign(ctx context.Context, ids []string, assignee string) error {
	if len(ids) > MaxBatch {
		return fmt.Errorf("bulk assigning %d leads: %w (max %d)", len(ids), ErrBatchTooLarge, MaxBatch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if _, ok := m.leads[id]; !ok {
			return fmt.Errorf("bulk assigning leads: %w (%s)", ErrNotFound, id)
		}
	}
	for _, id := range ids {
		m.leads[id].AssignedTo = []string{assignee}
	}
	return nil
}

// GetByEmail looks up a user by email.
func (m *Memory) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

// ListByRole enumerates users with the given role, ordered by email.
func (m *Memory) ListByRole(ctx context.Context, role string) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var users []*models.User
	for _, u := range m.users {
		if u.Role == role {
			c := *u
			users = append(users, &c)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

// PutUser inserts or replaces a user.
func (m *Memory) PutUser(ctx context.Context, u *models.User) error {
	if u.Email == "" {
		return fmt.Errorf("user email is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *u
	m.users[u.Email] = &c
	return nil
}
