// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package ingestservice

import (
	"context"
	"encoding/base64"

	"github.com/pkg/errors"
	"github.com/tallyops/receipt-ingest/internal/api"
	"github.com/tallyops/receipt-ingest/internal/blobstore"
	"github.com/tallyops/receipt-ingest/internal/dispatch"
	"github.com/tallyops/receipt-ingest/internal/identity"
	"github.com/tallyops/receipt-ingest/internal/ledger"
	"github.com/tallyops/receipt-ingest/internal/policy"
	"github.com/tallyops/receipt-ingest/internal/screening"
	"github.com/tallyops/receipt-ingest/pkg/schema"
	"google.golang.org/grpc/codes"
)

type IngestDeps struct {
	Policy     policy.Policy
	Verifier   identity.Verifier
	Screener   screening.Screener
	Store      blobstore.Store
	Ledger     ledger.Recorder
	Dispatcher dispatch.Dispatcher
}

// Ingest accepts a base64-encoded receipt document submitted on behalf of a
// user, validates it, and hands it off for extraction.
func Ingest(ctx context.Context, req schema.IngestRequest, deps *IngestDeps) (*schema.IngestResponse, error) {
	doc, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return nil, api.AsStatus(codes.InvalidArgument, errors.Wrap(err, "decoding document"))
	}
	p := pipeline{
		policy:     deps.Policy,
		verifier:   deps.Verifier,
		screener:   deps.Screener,
		store:      deps.Store,
		ledger:     deps.Ledger,
		dispatcher: deps.Dispatcher,
	}
	return p.run(ctx, req.UserID, doc)
}
