// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity verifies that submitters are known, active users.
package identity

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"github.com/tallyops/receipt-ingest/internal/cache"
)

var (
	// ErrUnknownUser indicates the user ID does not exist.
	ErrUnknownUser = errors.New("unknown user")
	// ErrUserDisabled indicates the user exists but is disabled.
	ErrUserDisabled = errors.New("user disabled")
)

// Verifier checks that a user may submit receipts. A nil return means the
// user is known and active. Verification fails closed: transient backend
// errors reject the submission.
type Verifier interface {
	Verify(ctx context.Context, userID string) error
}

// UserGetter is the subset of the Firebase auth client used for verification.
type UserGetter interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

// FirebaseVerifier verifies users against Firebase Auth.
type FirebaseVerifier struct {
	Client UserGetter
}

var _ Verifier = &FirebaseVerifier{}

// NewFirebaseVerifier builds a verifier from the ambient Firebase credentials.
func NewFirebaseVerifier(ctx context.Context) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating auth client")
	}
	return &FirebaseVerifier{Client: client}, nil
}

// Verify checks that the user exists and is not disabled.
func (v *FirebaseVerifier) Verify(ctx context.Context, userID string) error {
	record, err := v.Client.GetUser(ctx, userID)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return ErrUnknownUser
		}
		return errors.Wrap(err, "fetching user")
	}
	if record.Disabled {
		return ErrUserDisabled
	}
	return nil
}

// CachedVerifier wraps a Verifier, caching successful verifications and
// coalescing concurrent checks of the same user. Rejections are not cached,
// so a user enabled mid-flight is picked up on their next submission.
type CachedVerifier struct {
	verifier Verifier
	verified cache.Coalescing[string, struct{}]
}

var _ Verifier = &CachedVerifier{}

// NewCachedVerifier wraps the given verifier with a verification cache.
func NewCachedVerifier(v Verifier) *CachedVerifier {
	return &CachedVerifier{verifier: v}
}

// Verify checks the cache before delegating to the underlying verifier.
func (cv *CachedVerifier) Verify(ctx context.Context, userID string) error {
	_, err := cv.verified.GetOrSet(userID, func() (struct{}, error) {
		return struct{}{}, cv.verifier.Verify(ctx, userID)
	})
	return err
}
