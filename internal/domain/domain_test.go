package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResourceRef(t *testing.T) {
	tests := []struct {
		in   string
		want ResourceRef
	}{
		{"db1:col1", ResourceRef{DatabaseID: "db1", CollectionID: "col1"}},
		{"", ResourceRef{}},
		{"db1", ResourceRef{}},
		{"db1:", ResourceRef{}},
		{":col1", ResourceRef{}},
		{"a:b:c", ResourceRef{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseResourceRef(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.IsZero(), got.String() == "")
		})
	}
}

func TestStatusPhase(t *testing.T) {
	assert.Equal(t, PhasePending, ParseStatus("Pending").Phase())
	assert.Equal(t, PhaseUploading, ParseStatus(" uploading ").Phase())
	assert.Equal(t, PhaseUnknown, ParseStatus("queued").Phase())
	assert.Equal(t, "queued", ParseStatus("queued").String())

	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusUploading.IsTerminal())
	assert.False(t, Status("queued").IsTerminal())
}

func TestProgressPercent(t *testing.T) {
	want := map[Status]int{
		StatusPending:    10,
		StatusProcessing: 30,
		StatusUploading:  60,
		StatusCompleted:  100,
		StatusFailed:     100,
		"":               30,
		"queued":         30,
		"COMPLETED":      30, // raw labels are not normalized here
	}
	for status, pct := range want {
		assert.Equal(t, pct, ProgressPercent(status), "status %q", status)
	}
}

func TestJobIsCSV(t *testing.T) {
	assert.True(t, Job{Source: "CSV"}.IsCSV())
	assert.True(t, Job{Source: "csv"}.IsCSV())
	assert.False(t, Job{Source: "Appwrite"}.IsCSV())
	assert.False(t, Job{}.IsCSV())
}
