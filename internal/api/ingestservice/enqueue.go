// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package ingestservice

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tallyops/receipt-ingest/internal/api"
	"github.com/tallyops/receipt-ingest/internal/blobstore"
	"github.com/tallyops/receipt-ingest/internal/dispatch"
	"github.com/tallyops/receipt-ingest/internal/ledger"
	"github.com/tallyops/receipt-ingest/internal/policy"
	"github.com/tallyops/receipt-ingest/internal/screening"
	"github.com/tallyops/receipt-ingest/pkg/schema"
	"google.golang.org/grpc/codes"
)

// unknownUser attributes documents that arrive via storage notification,
// where the uploader's identity is not encoded in the event.
const unknownUser = "unknown"

type EnqueueDeps struct {
	Policy     policy.Policy
	Fetcher    blobstore.Fetcher
	Screener   screening.Screener
	Store      blobstore.Store
	Ledger     ledger.Recorder
	Dispatcher dispatch.Dispatcher
}

// Enqueue ingests a document announced by a storage object notification.
// The uploader was already authenticated by whatever wrote the object, so
// user verification is skipped.
func Enqueue(ctx context.Context, e schema.ObjectEvent, deps *EnqueueDeps) (*schema.IngestResponse, error) {
	doc, err := deps.Fetcher.Fetch(ctx, e.Bucket, e.Name)
	if errors.Is(err, blobstore.ErrObjectNotFound) {
		return nil, api.AsStatus(codes.NotFound, errors.Wrapf(err, "fetching gs://%s/%s", e.Bucket, e.Name))
	} else if err != nil {
		return nil, api.AsStatus(codes.Internal, errors.Wrapf(err, "fetching gs://%s/%s", e.Bucket, e.Name))
	}
	p := pipeline{
		policy:     deps.Policy,
		screener:   deps.Screener,
		store:      deps.Store,
		ledger:     deps.Ledger,
		dispatcher: deps.Dispatcher,
	}
	return p.run(ctx, unknownUser, doc)
}
