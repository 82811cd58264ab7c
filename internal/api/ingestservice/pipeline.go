// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingestservice implements the receipt ingestion operations.
package ingestservice

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/tallyops/receipt-ingest/internal/api"
	"github.com/tallyops/receipt-ingest/internal/blobstore"
	"github.com/tallyops/receipt-ingest/internal/dispatch"
	"github.com/tallyops/receipt-ingest/internal/identity"
	"github.com/tallyops/receipt-ingest/internal/ledger"
	"github.com/tallyops/receipt-ingest/internal/policy"
	"github.com/tallyops/receipt-ingest/internal/screening"
	"github.com/tallyops/receipt-ingest/pkg/receipt"
	"github.com/tallyops/receipt-ingest/pkg/schema"
	"google.golang.org/grpc/codes"
)

// pipeline runs the validation and acceptance steps shared by direct
// submissions and storage-event submissions.
type pipeline struct {
	policy     policy.Policy
	verifier   identity.Verifier // nil skips user verification
	screener   screening.Screener
	store      blobstore.Store
	ledger     ledger.Recorder
	dispatcher dispatch.Dispatcher
}

// run validates the document and, if accepted, stores it, records the
// attempt, and dispatches it for extraction.
func (p pipeline) run(ctx context.Context, userID string, doc []byte) (*schema.IngestResponse, error) {
	if p.verifier != nil {
		if err := p.verifier.Verify(ctx, userID); err != nil {
			return nil, api.AsStatus(codes.PermissionDenied, errors.Wrapf(err, "verifying user %s", userID))
		}
	}
	if int64(len(doc)) > p.policy.MaxBytes() {
		return nil, api.AsHTTPStatus(http.StatusRequestEntityTooLarge, errors.Errorf("file exceeds size limit of %dMB", p.policy.MaxSizeMB))
	}
	ct := receipt.Sniff(doc)
	if !p.policy.Allows(ct) {
		return nil, api.AsHTTPStatus(http.StatusUnsupportedMediaType, errors.Errorf("content type %s not allowed", ct))
	}
	rec := receipt.New(userID, ct)
	if ct.IsImage() {
		if err := p.screener.Screen(ctx, doc); err != nil {
			p.record(ctx, rec, int64(len(doc)), "", false, err.Error())
			return nil, api.AsHTTPStatus(http.StatusUnprocessableEntity, err)
		}
	}
	w, err := p.store.Writer(ctx, rec)
	if err != nil {
		return nil, api.AsStatus(codes.Internal, errors.Wrap(err, "creating object writer"))
	}
	if _, err := w.Write(doc); err != nil {
		return nil, api.AsStatus(codes.Internal, errors.Wrap(err, "writing object"))
	}
	if err := w.Close(); err != nil {
		return nil, api.AsStatus(codes.Internal, errors.Wrap(err, "finalizing object"))
	}
	uri := p.store.URL(rec).String()
	log.Printf("stored receipt %s at %s", rec.ID, uri)
	p.record(ctx, rec, int64(len(doc)), uri, true, "")
	if err := p.dispatcher.Dispatch(ctx, schema.ExtractRequest{FilePath: uri, UserID: userID}); err != nil {
		return nil, api.AsStatus(codes.Internal, errors.Wrap(err, "dispatching extraction"))
	}
	return &schema.IngestResponse{
		ID:          rec.ID,
		ObjectName:  rec.ObjectName(),
		URI:         uri,
		ContentType: string(ct),
		SizeBytes:   int64(len(doc)),
	}, nil
}

// record writes an attempt record. Failures are logged rather than surfaced:
// ledger writes must not turn an accepted submission into an error after the
// document has already been stored, nor mask the rejection reason.
func (p pipeline) record(ctx context.Context, rec receipt.Receipt, size int64, uri string, accepted bool, message string) {
	if p.ledger == nil {
		return
	}
	err := p.ledger.Record(ctx, schema.IngestRecord{
		UserID:      rec.UserID,
		ReceiptID:   rec.ID,
		ObjectName:  rec.ObjectName(),
		URI:         uri,
		ContentType: string(rec.ContentType),
		SizeBytes:   size,
		Accepted:    accepted,
		Message:     message,
		Created:     time.Now().UnixMilli(),
	})
	if err != nil {
		log.Println(errors.Wrapf(err, "recording attempt for %s/%s", rec.UserID, rec.ID))
	}
}
