package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propdesk/leadadmin/pkg/models"
)

func seedLeads(t *testing.T, m *Memory, n int) []*models.Lead {
	t.Helper()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	leads := make([]*models.Lead, 0, n)
	for i := 0; i < n; i++ {
		l := &models.Lead{
			ID:       fmt.Sprintf("lead-%02d", i),
			Name:     fmt.Sprintf("Lead %d", i),
			Email:    fmt.Sprintf("lead%d@example.com", i),
			DateTime: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, m.Put(context.Background(), l))
		leads = append(leads, l)
	}
	return leads
}

func TestMemoryList_OrdersNewestFirst(t *testing.T) {
	m := NewMemory()
	seedLeads(t, m, 5)

	page, err := m.List(context.Background(), LeadQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Leads, 5)

	assert.Equal(t, "lead-04", page.Leads[0].ID, "newest lead should come first")
	assert.Equal(t, "lead-00", page.Leads[4].ID)
	assert.Empty(t, page.Next, "full result set should not carry a next cursor")
}

func TestMemoryList_CursorPaging(t *testing.T) {
	m := NewMemory()
	seedLeads(t, m, 5)

	first, err := m.List(context.Background(), LeadQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Leads, 2)
	require.NotEmpty(t, first.Next)

	second, err := m.List(context.Background(), LeadQuery{Limit: 2, StartAfter: first.Next})
	require.NoError(t, err)
	require.Len(t, second.Leads, 2)
	assert.Equal(t, "lead-02", second.Leads[0].ID)

	third, err := m.List(context.Background(), LeadQuery{Limit: 2, StartAfter: second.Next})
	require.NoError(t, err)
	require.Len(t, third.Leads, 1)
	assert.Empty(t, third.Next, "last page signals end of results")
}

func TestMemoryList_BadCursor(t *testing.T) {
	m := NewMemory()
	seedLeads(t, m, 2)

	_, err := m.List(context.Background(), LeadQuery{Limit: 2, StartAfter: "!!not-base64!!"})
	assert.ErrorIs(t, err, ErrBadCursor)
}

func TestMemoryList_AssigneeContainment(t *testing.T) {
	m := NewMemory()
	leads := seedLeads(t, m, 4)

	leads[1].AssignedTo = []string{"rep@example.com"}
	require.NoError(t, m.Put(context.Background(), leads[1]))
	leads[3].AssignedTo = []string{"rep@example.com"}
	require.NoError(t, m.Put(context.Background(), leads[3]))

	page, err := m.List(context.Background(), LeadQuery{AssignedTo: "rep@example.com", Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Leads, 2)
	assert.Equal(t, "lead-03", page.Leads[0].ID)
	assert.Equal(t, "lead-01", page.Leads[1].ID)

	count, err := m.Count(context.Background(), LeadQuery{AssignedTo: "rep@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemoryList_NormalizesColorOnRead(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Put(context.Background(), &models.Lead{ID: "x", DateTime: time.Now()}))

	got, err := m.Get(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, models.ColorWhite, got.LeadColor)
	assert.NotNil(t, got.AssignedTo)
}

func TestMemoryBatchPut_Atomic(t *testing.T) {
	m := NewMemory()
	seedLeads(t, m, 1)

	batch := []*models.Lead{
		{ID: "new-1", DateTime: time.Now()},
		{ID: "lead-00", DateTime: time.Now()}, // duplicate
		{ID: "new-2", DateTime: time.Now()},
	}
	err := m.BatchPut(context.Background(), batch)
	require.Error(t, err)

	_, err = m.Get(context.Background(), "new-1")
	assert.ErrorIs(t, err, ErrNotFound, "failed batch must not commit any record")
	_, err = m.Get(context.Background(), "new-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBatchPut_RejectsOversizedBatch(t *testing.T) {
	m := NewMemory()

	batch := make([]*models.Lead, MaxBatch+1)
	for i := range batch {
		batch[i] = &models.Lead{ID: fmt.Sprintf("bulk-%03d", i), DateTime: time.Now()}
	}
	err := m.BatchPut(context.Background(), batch)
	require.ErrorIs(t, err, ErrBatchTooLarge)

	count, err := m.Count(context.Background(), LeadQuery{})
	require.NoError(t, err)
	assert.Zero(t, count, "rejected batch must not commit any record")

	require.NoError(t, m.BatchPut(context.Background(), batch[:MaxBatch]))
}

func TestMemoryBulkAssign_RejectsOversizedBatch(t *testing.T) {
	m := NewMemory()
	seedLeads(t, m, 1)

	ids := make([]string, MaxBatch+1)
	for i := range ids {
		ids[i] = "lead-00"
	}
	err := m.BulkAssign(context.Background(), ids, "rep@example.com")
	require.ErrorIs(t, err, ErrBatchTooLarge)

	l, err := m.Get(context.Background(), "lead-00")
	require.NoError(t, err)
	assert.Empty(t, l.AssignedTo)
}

func TestMemoryBulkAssign_AllOrNothing(t *testing.T) {
	m := NewMemory()
	seedLeads(t, m, 3)

	err := m.BulkAssign(context.Background(), []string{"lead-00", "missing", "lead-02"}, "rep@example.com")
	require.Error(t, err)

	for _, id := range []string{"lead-00", "lead-02"} {
		l, err := m.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Empty(t, l.AssignedTo, "failed bulk assign must leave data unchanged")
	}

	require.NoError(t, m.BulkAssign(context.Background(), []string{"lead-00", "lead-02"}, "rep@example.com"))
	l, err := m.Get(context.Background(), "lead-00")
	require.NoError(t, err)
	assert.Equal(t, []string{"rep@example.com"}, l.AssignedTo)
}

func TestMemoryUsers(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.PutUser(context.Background(), &models.User{Email: "a@x.com", Role: models.RoleSales}))
	require.NoError(t, m.PutUser(context.Background(), &models.User{Email: "b@x.com", Role: models.RoleAdmin}))
	require.NoError(t, m.PutUser(context.Background(), &models.User{Email: "c@x.com", Role: models.RoleSales}))

	u, err := m.GetByEmail(context.Background(), "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	_, err = m.GetByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)

	sales, err := m.ListByRole(context.Background(), models.RoleSales)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "a@x.com", sales[0].Email)
	assert.Equal(t, "c@x.com", sales[1].Email)
}
