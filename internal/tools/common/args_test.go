package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringArg(t *testing.T) {
	args := map[string]any{"title": "  Standup ", "count": 3.0}

	assert.Equal(t, "Standup", StringArg(args, "title"))
	assert.Equal(t, "", StringArg(args, "count"))
	assert.Equal(t, "", StringArg(args, "missing"))
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int
		wantErr bool
	}{
		{name: "absent", value: nil, want: 60},
		{name: "json number", value: 90.0, want: 90},
		{name: "int", value: 15, want: 15},
		{name: "numeric string", value: " 30 ", want: 30},
		{name: "empty string", value: "", want: 60},
		{name: "fraction", value: 1.5, wantErr: true},
		{name: "word", value: "soon", wantErr: true},
		{name: "bool", value: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]any{}
			if tt.value != nil {
				args["duration_minutes"] = tt.value
			}
			got, err := IntArg(args, "duration_minutes", 60)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringListArg(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    []string
		wantErr bool
	}{
		{name: "absent", value: nil, want: nil},
		{name: "json array", value: []any{"a@example.com", " b@example.com ", ""}, want: []string{"a@example.com", "b@example.com"}},
		{name: "string slice", value: []string{"a@example.com"}, want: []string{"a@example.com"}},
		{name: "comma separated", value: "a@example.com, b@example.com", want: []string{"a@example.com", "b@example.com"}},
		{name: "mixed array", value: []any{"a@example.com", 3.0}, wantErr: true},
		{name: "number", value: 3.0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]any{}
			if tt.value != nil {
				args["attendees"] = tt.value
			}
			got, err := StringListArg(args, "attendees")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
