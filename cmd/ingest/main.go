// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Binary ingest serves the receipt ingestion API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/tallyops/receipt-ingest/internal/api"
	"github.com/tallyops/receipt-ingest/internal/api/ingestservice"
	"github.com/tallyops/receipt-ingest/internal/blobstore"
	"github.com/tallyops/receipt-ingest/internal/dispatch"
	"github.com/tallyops/receipt-ingest/internal/identity"
	"github.com/tallyops/receipt-ingest/internal/ledger"
	"github.com/tallyops/receipt-ingest/internal/policy"
	"github.com/tallyops/receipt-ingest/internal/screening"
	"github.com/tallyops/receipt-ingest/pkg/schema"
)

var (
	project         = flag.String("project", "", "GCP Project ID for storage and ledger resources")
	receiptsBucket  = flag.String("receipts-bucket", "", "GCS bucket in which accepted receipts are stored")
	extractionTopic = flag.String("extraction-topic", "", "Pub/Sub topic on which accepted receipts are announced")
	taskQueue       = flag.String("task-queue", "", "Cloud Tasks queue path to use for extraction instead of the topic, if set")
	taskQueueEmail  = flag.String("task-queue-email", "", "service account email used as the identity for queued extraction tasks")
	extractorURL    = flag.String("extractor-url", "", "URL of the extraction service, required with -task-queue")
	policyPath      = flag.String("policy", "", "path to a YAML acceptance policy file, defaults apply if unset")
	port            = flag.Int("port", 8080, "port on which to serve")
)

// sharedVerifier spans requests so the verification cache can hit and
// coalesce across them. Swapped in tests.
var sharedVerifier = sync.OnceValues(newSharedVerifier)

func newSharedVerifier() (identity.Verifier, error) {
	v, err := identity.NewFirebaseVerifier(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "creating user verifier")
	}
	return identity.NewCachedVerifier(v), nil
}

func loadPolicy() (policy.Policy, error) {
	if *policyPath == "" {
		return policy.Default(), nil
	}
	return policy.Load(*policyPath)
}

func newDispatcher(ctx context.Context) (dispatch.Dispatcher, error) {
	if *taskQueue != "" {
		return dispatch.NewQueueDispatcher(ctx, *taskQueue, *taskQueueEmail, *extractorURL)
	}
	return dispatch.NewTopicDispatcher(ctx, *project, *extractionTopic)
}

func IngestInit(ctx context.Context) (*ingestservice.IngestDeps, error) {
	var d ingestservice.IngestDeps
	var err error
	d.Policy, err = loadPolicy()
	if err != nil {
		return nil, errors.Wrap(err, "loading policy")
	}
	d.Verifier, err = sharedVerifier()
	if err != nil {
		return nil, err
	}
	d.Screener, err = screening.NewVisionScreener(ctx, d.Policy.MinTextLength)
	if err != nil {
		return nil, errors.Wrap(err, "creating screener")
	}
	d.Store, err = blobstore.NewGCSStore(ctx, *receiptsBucket)
	if err != nil {
		return nil, errors.Wrap(err, "creating receipt store")
	}
	d.Ledger, err = ledger.NewFirestoreLedger(ctx, *project)
	if err != nil {
		return nil, errors.Wrap(err, "creating ledger")
	}
	d.Dispatcher, err = newDispatcher(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating dispatcher")
	}
	return &d, nil
}

func EnqueueInit(ctx context.Context) (*ingestservice.EnqueueDeps, error) {
	var d ingestservice.EnqueueDeps
	var err error
	d.Policy, err = loadPolicy()
	if err != nil {
		return nil, errors.Wrap(err, "loading policy")
	}
	store, err := blobstore.NewGCSStore(ctx, *receiptsBucket)
	if err != nil {
		return nil, errors.Wrap(err, "creating receipt store")
	}
	d.Store = store
	d.Fetcher = store
	d.Screener, err = screening.NewVisionScreener(ctx, d.Policy.MinTextLength)
	if err != nil {
		return nil, errors.Wrap(err, "creating screener")
	}
	d.Ledger, err = ledger.NewFirestoreLedger(ctx, *project)
	if err != nil {
		return nil, errors.Wrap(err, "creating ledger")
	}
	d.Dispatcher, err = newDispatcher(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating dispatcher")
	}
	return &d, nil
}

func IngestStatusInit(ctx context.Context) (*ingestservice.IngestStatusDeps, error) {
	var d ingestservice.IngestStatusDeps
	var err error
	d.Ledger, err = ledger.NewFirestoreLedger(ctx, *project)
	if err != nil {
		return nil, errors.Wrap(err, "creating ledger")
	}
	return &d, nil
}

func main() {
	flag.Parse()
	http.HandleFunc("/ingest", api.Handler(IngestInit, ingestservice.Ingest))
	http.HandleFunc("/enqueue", api.Translate(schema.PushBodyToObjectEvent, api.Handler(EnqueueInit, ingestservice.Enqueue)))
	http.HandleFunc("/get", api.Handler(IngestStatusInit, ingestservice.IngestStatus))
	http.HandleFunc("/version", api.Handler(api.NoDepsInit, ingestservice.Version))
	log.Printf("serving on :%d", *port)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), nil); err != nil {
		log.Fatalln(err)
	}
}
