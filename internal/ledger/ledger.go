// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger records ingestion attempts for audit and status queries.
package ledger

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"github.com/tallyops/receipt-ingest/pkg/schema"
	"google.golang.org/api/iterator"
)

// ErrNoAttempts indicates no ingestion attempt exists for the receipt.
var ErrNoAttempts = errors.New("no ingestion attempts")

// Recorder persists and retrieves ingestion attempt records.
type Recorder interface {
	Record(ctx context.Context, rec schema.IngestRecord) error
	Latest(ctx context.Context, userID, receiptID string) (*schema.IngestRecord, error)
}

// FirestoreLedger stores attempt records in Firestore under
// users/{user}/receipts/{receipt}/attempts.
type FirestoreLedger struct {
	Client *firestore.Client
}

var _ Recorder = &FirestoreLedger{}

// NewFirestoreLedger creates a ledger in the given project's Firestore database.
func NewFirestoreLedger(ctx context.Context, project string) (*FirestoreLedger, error) {
	client, err := firestore.NewClient(ctx, project)
	if err != nil {
		return nil, errors.Wrap(err, "creating firestore client")
	}
	return &FirestoreLedger{Client: client}, nil
}

func (l *FirestoreLedger) attempts(userID, receiptID string) *firestore.CollectionRef {
	return l.Client.Collection("users").Doc(sanitize(userID)).Collection("receipts").Doc(sanitize(receiptID)).Collection("attempts")
}

// Record writes an attempt record, stamping Created if unset.
func (l *FirestoreLedger) Record(ctx context.Context, rec schema.IngestRecord) error {
	if rec.Created == 0 {
		rec.Created = time.Now().UnixMilli()
	}
	if _, _, err := l.attempts(rec.UserID, rec.ReceiptID).Add(ctx, rec); err != nil {
		return errors.Wrapf(err, "writing record for %s/%s", rec.UserID, rec.ReceiptID)
	}
	return nil
}

// Latest returns the most recent attempt record for the receipt.
func (l *FirestoreLedger) Latest(ctx context.Context, userID, receiptID string) (*schema.IngestRecord, error) {
	iter := l.attempts(userID, receiptID).OrderBy("created", firestore.Desc).Limit(1).Documents(ctx)
	snapshot, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNoAttempts
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	var rec schema.IngestRecord
	if err := snapshot.DataTo(&rec); err != nil {
		return nil, errors.Wrap(err, "decoding record")
	}
	return &rec, nil
}

// sanitize makes an identifier safe for use as a Firestore document ID.
func sanitize(id string) string {
	return strings.ReplaceAll(id, "/", "!")
}
