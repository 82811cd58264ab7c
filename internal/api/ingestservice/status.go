// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package ingestservice

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tallyops/receipt-ingest/internal/api"
	"github.com/tallyops/receipt-ingest/internal/ledger"
	"github.com/tallyops/receipt-ingest/pkg/schema"
	"google.golang.org/grpc/codes"
)

type IngestStatusDeps struct {
	Ledger ledger.Recorder
}

// IngestStatus returns the latest recorded attempt for a receipt.
func IngestStatus(ctx context.Context, req schema.IngestStatusRequest, deps *IngestStatusDeps) (*schema.IngestRecord, error) {
	rec, err := deps.Ledger.Latest(ctx, req.UserID, req.ID)
	if errors.Is(err, ledger.ErrNoAttempts) {
		return nil, api.AsStatus(codes.NotFound, errors.Wrapf(err, "receipt %s/%s", req.UserID, req.ID))
	} else if err != nil {
		return nil, api.AsStatus(codes.Internal, errors.Wrap(err, "reading ledger"))
	}
	return rec, nil
}
