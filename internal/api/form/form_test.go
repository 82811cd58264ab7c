// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package form

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type testMessage struct {
	Name     string   `form:",required"`
	Alias    string   `form:"alias"`
	Tags     []string `form:""`
	Count    int      `form:""`
	internal string
}

func TestMarshal(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    url.Values
		wantErr error
	}{
		{
			name: "all fields",
			in:   testMessage{Name: "a", Alias: "b", Tags: []string{"x", "y"}, Count: 3},
			want: url.Values{"name": {"a"}, "alias": {"b"}, "tags": {"x", "y"}, "count": {"3"}},
		},
		{
			name: "zero fields omitted",
			in:   testMessage{Name: "a"},
			want: url.Values{"name": {"a"}},
		},
		{
			name: "pointer input",
			in:   &testMessage{Name: "a"},
			want: url.Values{"name": {"a"}},
		},
		{
			name:    "non-struct",
			in:      42,
			wantErr: ErrInvalidType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.in)
			if err != tt.wantErr {
				t.Fatalf("Marshal() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Marshal() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		values  url.Values
		want    testMessage
		wantErr error
	}{
		{
			name:   "round trip",
			values: url.Values{"name": {"a"}, "alias": {"b"}, "tags": {"x", "y"}, "count": {"3"}},
			want:   testMessage{Name: "a", Alias: "b", Tags: []string{"x", "y"}, Count: 3},
		},
		{
			name:    "missing required",
			values:  url.Values{"alias": {"b"}},
			wantErr: ErrMissingRequired,
		},
		{
			name:   "optional absent",
			values: url.Values{"name": {"a"}},
			want:   testMessage{Name: "a"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got testMessage
			err := Unmarshal(tt.values, &got)
			if err != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(testMessage{})); diff != "" {
				t.Errorf("Unmarshal() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
