// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tallyops/receipt-ingest/pkg/receipt"
)

func TestDefault(t *testing.T) {
	p := Default()
	if p.MaxSizeMB != 5 {
		t.Errorf("MaxSizeMB = %d, want 5", p.MaxSizeMB)
	}
	if p.MaxBytes() != 5<<20 {
		t.Errorf("MaxBytes() = %d, want %d", p.MaxBytes(), 5<<20)
	}
	if p.MinTextLength != 10 {
		t.Errorf("MinTextLength = %d, want 10", p.MinTextLength)
	}
	for _, ct := range []receipt.ContentType{receipt.JPEG, receipt.PNG, receipt.WebP, receipt.PDF} {
		if !p.Allows(ct) {
			t.Errorf("Allows(%s) = false, want true", ct)
		}
	}
	if p.Allows(receipt.Unknown) {
		t.Error("Allows(octet-stream) = true, want false")
	}
}

func TestLoad(t *testing.T) {
	writeFile := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "policy.yaml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, p Policy)
		wantErr bool
	}{
		{
			name:    "overrides applied",
			content: "max_size_mb: 10\nmin_text_length: 25\n",
			check: func(t *testing.T, p Policy) {
				if p.MaxSizeMB != 10 {
					t.Errorf("MaxSizeMB = %d, want 10", p.MaxSizeMB)
				}
				if p.MinTextLength != 25 {
					t.Errorf("MinTextLength = %d, want 25", p.MinTextLength)
				}
				// Defaults survive partial overrides.
				if !p.Allows(receipt.PDF) {
					t.Error("Allows(pdf) = false, want true")
				}
			},
		},
		{
			name:    "restricted content types",
			content: "allowed_content_types: [image/png]\n",
			check: func(t *testing.T, p Policy) {
				if !p.Allows(receipt.PNG) {
					t.Error("Allows(png) = false, want true")
				}
				if p.Allows(receipt.PDF) {
					t.Error("Allows(pdf) = true, want false")
				}
			},
		},
		{
			name:    "invalid size",
			content: "max_size_mb: -1\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			content: "max_size_mb: [\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Load(writeFile(t, tt.content))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, p)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}
