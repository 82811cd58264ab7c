// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package ingestservice

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/tallyops/receipt-ingest/internal/ledger"
	"github.com/tallyops/receipt-ingest/pkg/schema"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIngestStatus(t *testing.T) {
	want := &schema.IngestRecord{
		UserID:    "u1",
		ReceiptID: "r1",
		Accepted:  true,
		Created:   1700000000000,
	}
	deps := &IngestStatusDeps{Ledger: &fakeRecorder{latest: want}}
	got, err := IngestStatus(context.Background(), schema.IngestStatusRequest{UserID: "u1", ID: "r1"}, deps)
	if err != nil {
		t.Fatalf("IngestStatus() = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record diff (-want +got):\n%s", diff)
	}
}

func TestIngestStatusNoAttempts(t *testing.T) {
	deps := &IngestStatusDeps{Ledger: &fakeRecorder{latestErr: ledger.ErrNoAttempts}}
	_, err := IngestStatus(context.Background(), schema.IngestStatusRequest{UserID: "u1", ID: "r1"}, deps)
	if got := status.Code(err); got != codes.NotFound {
		t.Errorf("status.Code(err) = %v, want %v", got, codes.NotFound)
	}
}

func TestIngestStatusLedgerFailure(t *testing.T) {
	deps := &IngestStatusDeps{Ledger: &fakeRecorder{latestErr: errors.New("backend down")}}
	_, err := IngestStatus(context.Background(), schema.IngestStatusRequest{UserID: "u1", ID: "r1"}, deps)
	if got := status.Code(err); got != codes.Internal {
		t.Errorf("status.Code(err) = %v, want %v", got, codes.Internal)
	}
}
