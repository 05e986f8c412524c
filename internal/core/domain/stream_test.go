package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     StreamDefinition
		wantErr bool
	}{
		{
			name: "incremental with key",
			def:  StreamDefinition{ID: "opens", Mode: SyncModeIncremental, BookmarkKey: "Date", Scope: ScopeParent},
		},
		{
			name: "full without key",
			def:  StreamDefinition{ID: "suppressionlist", Mode: SyncModeFull, Scope: ScopeClient},
		},
		{
			name:    "incremental without key",
			def:     StreamDefinition{ID: "opens", Mode: SyncModeIncremental, Scope: ScopeParent},
			wantErr: true,
		},
		{
			name:    "full with key",
			def:     StreamDefinition{ID: "recipients", Mode: SyncModeFull, BookmarkKey: "Date"},
			wantErr: true,
		},
		{
			name:    "unknown mode",
			def:     StreamDefinition{ID: "x", Mode: "SOMETIMES"},
			wantErr: true,
		},
		{
			name:    "empty id",
			def:     StreamDefinition{Mode: SyncModeFull},
			wantErr: true,
		},
		{
			name:    "parent producer without id field",
			def:     StreamDefinition{ID: "campaigns", Mode: SyncModeFull, Scope: ScopeClient, ParentProducer: true},
			wantErr: true,
		},
		{
			name: "incremental parent producer",
			def: StreamDefinition{ID: "campaigns", Mode: SyncModeIncremental, BookmarkKey: "SentDate",
				Scope: ScopeClient, ParentProducer: true, ParentIDField: "CampaignID"},
			wantErr: true,
		},
		{
			name: "parent producer",
			def: StreamDefinition{ID: "campaigns", Mode: SyncModeFull, Scope: ScopeClient,
				ParentProducer: true, ParentIDField: "CampaignID"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStreamDefinition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStreamDefinition_IsIncremental(t *testing.T) {
	assert.True(t, StreamDefinition{Mode: SyncModeIncremental}.IsIncremental())
	assert.False(t, StreamDefinition{Mode: SyncModeFull}.IsIncremental())
}

func TestParseOrderDirection(t *testing.T) {
	d, err := ParseOrderDirection("")
	assert.NoError(t, err)
	assert.Equal(t, OrderDescending, d)

	d, err = ParseOrderDirection("asc")
	assert.NoError(t, err)
	assert.Equal(t, OrderAscending, d)

	_, err = ParseOrderDirection("sideways")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
