package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storesync/storesync/internal/item/domain"
)

func TestListItemsQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   ListItemsQuery
		wantErr bool
	}{
		{name: "empty", query: ListItemsQuery{}},
		{name: "failed items", query: ListItemsQuery{SyncState: "failed"}},
		{name: "sold items", query: ListItemsQuery{LifecycleState: "sold", SyncState: "pending"}},
		{name: "unknown sync state", query: ListItemsQuery{SyncState: "stuck"}, wantErr: true},
		{name: "unknown lifecycle state", query: ListItemsQuery{LifecycleState: "archived"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestListItemsQuery_ToFilter(t *testing.T) {
	q := ListItemsQuery{SyncState: "failed", LifecycleState: "mapped"}

	assert.Equal(t, domain.ListFilter{
		SyncState:      domain.SyncStateFailed,
		LifecycleState: domain.LifecycleMapped,
		Offset:         20,
		Limit:          10,
	}, q.ToFilter(20, 10))
}
