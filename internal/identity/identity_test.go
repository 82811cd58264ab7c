// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"sync/atomic"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
)

type fakeUserGetter struct {
	records map[string]*auth.UserRecord
	err     error
	calls   atomic.Int32
}

func (f *fakeUserGetter) GetUser(ctx context.Context, uid string) (*auth.UserRecord, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.records[uid], nil
}

func TestFirebaseVerifier(t *testing.T) {
	tests := []struct {
		name    string
		getter  *fakeUserGetter
		userID  string
		wantErr error
	}{
		{
			name: "active user",
			getter: &fakeUserGetter{records: map[string]*auth.UserRecord{
				"u1": {UserInfo: &auth.UserInfo{UID: "u1"}},
			}},
			userID: "u1",
		},
		{
			name: "disabled user",
			getter: &fakeUserGetter{records: map[string]*auth.UserRecord{
				"u2": {UserInfo: &auth.UserInfo{UID: "u2"}, Disabled: true},
			}},
			userID:  "u2",
			wantErr: ErrUserDisabled,
		},
		{
			name:    "backend error fails closed",
			getter:  &fakeUserGetter{err: errors.New("backend unavailable")},
			userID:  "u3",
			wantErr: errors.New("any"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &FirebaseVerifier{Client: tt.getter}
			err := v.Verify(context.Background(), tt.userID)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Verify() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Error("Verify() expected error, got nil")
			}
			if tt.wantErr == ErrUserDisabled && !errors.Is(err, ErrUserDisabled) {
				t.Errorf("Verify() error = %v, want ErrUserDisabled", err)
			}
		})
	}
}

func TestCachedVerifierCachesSuccess(t *testing.T) {
	getter := &fakeUserGetter{records: map[string]*auth.UserRecord{
		"u1": {UserInfo: &auth.UserInfo{UID: "u1"}},
	}}
	cv := NewCachedVerifier(&FirebaseVerifier{Client: getter})
	for range 5 {
		if err := cv.Verify(context.Background(), "u1"); err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
	}
	if n := getter.calls.Load(); n != 1 {
		t.Errorf("backend called %d times, want 1", n)
	}
}

func TestCachedVerifierRetriesFailures(t *testing.T) {
	getter := &fakeUserGetter{err: errors.New("backend unavailable")}
	cv := NewCachedVerifier(&FirebaseVerifier{Client: getter})
	for range 3 {
		if err := cv.Verify(context.Background(), "u1"); err == nil {
			t.Fatal("Verify() expected error")
		}
	}
	if n := getter.calls.Load(); n != 3 {
		t.Errorf("backend called %d times, want 3", n)
	}
}
