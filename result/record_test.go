package result_test

import (
	"testing"

	"github.com/molscreen/molscreen/result"
	"github.com/stretchr/testify/assert"
)

func TestSortTieBreak(t *testing.T) {
	t.Parallel()

	records := []result.Record{
		{ItemID: "lig-b", Score: -7.1},
		{ItemID: "lig-a", Score: -7.1},
		{ItemID: "lig-c", Score: -9.4},
	}
	result.Sort(records)

	assert.Equal(t, []result.Record{
		{ItemID: "lig-c", Score: -9.4},
		{ItemID: "lig-a", Score: -7.1},
		{ItemID: "lig-b", Score: -7.1},
	}, records)
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		records  []result.Record
		expected []result.Record
	}{
		{
			name:     "empty",
			records:  nil,
			expected: nil,
		},
		{
			name:     "single",
			records:  []result.Record{{ItemID: "a", Score: 1}},
			expected: []result.Record{{ItemID: "a", Score: 1}},
		},
		{
			name: "keeps minimum score per id",
			records: []result.Record{
				{ItemID: "a", Score: -5.0},
				{ItemID: "b", Score: -6.0},
				{ItemID: "a", Score: -8.0},
			},
			expected: []result.Record{
				{ItemID: "a", Score: -8.0},
				{ItemID: "b", Score: -6.0},
			},
		},
		{
			name: "no duplicates untouched",
			records: []result.Record{
				{ItemID: "a", Score: 1},
				{ItemID: "b", Score: 2},
			},
			expected: []result.Record{
				{ItemID: "a", Score: 1},
				{ItemID: "b", Score: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, result.Dedupe(tt.records))
		})
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()

	a := []result.Record{{ItemID: "x", Score: -3}, {ItemID: "y", Score: -1}}
	b := []result.Record{{ItemID: "x", Score: -4}, {ItemID: "z", Score: -2}}

	merged := result.Merge(a, b)

	assert.Equal(t, []result.Record{
		{ItemID: "x", Score: -4},
		{ItemID: "z", Score: -2},
		{ItemID: "y", Score: -1},
	}, merged)
}
