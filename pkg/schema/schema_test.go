// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIngestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     IngestRequest
		wantErr bool
	}{
		{
			name: "valid",
			req:  IngestRequest{UserID: "u", Data: base64.StdEncoding.EncodeToString([]byte("doc"))},
		},
		{
			name:    "missing user",
			req:     IngestRequest{Data: "YQ=="},
			wantErr: true,
		},
		{
			name:    "missing data",
			req:     IngestRequest{UserID: "u"},
			wantErr: true,
		},
		{
			name:    "bad base64",
			req:     IngestRequest{UserID: "u", Data: "not base64!!!"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPushBodyToObjectEvent(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		want        *ObjectEvent
		wantErr     bool
		errContains string
	}{
		{
			name: "valid storage notification",
			body: `{
				"message": {
					"data": "eyJidWNrZXQiOiAibXktYnVja2V0IiwgIm5hbWUiOiAidXBsb2Fkcy91LTEucG5nIiwgImdlbmVyYXRpb24iOiAiMTc1NjI0ODM1MDc2ODAxNyJ9",
					"messageId": "12345"
				},
				"subscription": "projects/p/subscriptions/s"
			}`,
			want: &ObjectEvent{
				Bucket:     "my-bucket",
				Name:       "uploads/u-1.png",
				Generation: "1756248350768017",
			},
		},
		{
			name:        "invalid JSON",
			body:        `{"message": {`,
			wantErr:     true,
			errContains: "decoding envelope",
		},
		{
			name:        "missing message data",
			body:        `{"subscription": "projects/p/subscriptions/s"}`,
			wantErr:     true,
			errContains: "missing message data",
		},
		{
			name: "metadata missing bucket",
			// data is base64 of {"name": "x"}
			body:        `{"message": {"data": "eyJuYW1lIjogIngifQ=="}}`,
			wantErr:     true,
			errContains: "missing bucket or name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PushBodyToObjectEvent(io.NopCloser(strings.NewReader(tt.body)))
			if tt.wantErr {
				if err == nil {
					t.Fatal("PushBodyToObjectEvent() expected error, got nil")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("PushBodyToObjectEvent() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("PushBodyToObjectEvent() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("PushBodyToObjectEvent() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractRequestValidate(t *testing.T) {
	if err := (ExtractRequest{FilePath: "gs://b/o", UserID: "u"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (ExtractRequest{FilePath: "gs://b/o"}).Validate(); err == nil {
		t.Error("Validate() expected error for missing user_id")
	}
}
