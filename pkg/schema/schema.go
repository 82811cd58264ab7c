// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the request and record types exchanged by the
// ingestion service, its tools, and its queues.
package schema

import (
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// IngestRequest is a direct receipt submission.
type IngestRequest struct {
	UserID string `form:"user_id,required"`
	// Data is the base64-encoded document content.
	Data string `form:",required"`
}

func (r IngestRequest) Validate() error {
	if r.UserID == "" || r.Data == "" {
		return errors.New("missing user_id or data")
	}
	if _, err := base64.StdEncoding.DecodeString(r.Data); err != nil {
		return errors.Wrap(err, "data must be base64")
	}
	return nil
}

// IngestResponse reports where an accepted receipt was stored.
type IngestResponse struct {
	ID          string `json:"id"`
	ObjectName  string `json:"object_name"`
	URI         string `json:"uri"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// ObjectEvent identifies a document landed in a storage bucket.
type ObjectEvent struct {
	Bucket     string `form:",required"`
	Name       string `form:",required"`
	Generation string `form:""`
}

func (ObjectEvent) Validate() error { return nil }

// pushEnvelope is the Pub/Sub push delivery wrapper.
// https://cloud.google.com/pubsub/docs/push#receive_push
type pushEnvelope struct {
	Message struct {
		Data      []byte `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// objectMetadata is the subset of the GCS Object resource carried in
// storage notifications.
// https://cloud.google.com/storage/docs/json_api/v1/objects#resource
type objectMetadata struct {
	Bucket     string `json:"bucket"`
	Name       string `json:"name"`
	Generation string `json:"generation"`
}

// PushBodyToObjectEvent converts a Pub/Sub push envelope wrapping a storage
// notification into an ObjectEvent.
func PushBodyToObjectEvent(body io.ReadCloser) (*ObjectEvent, error) {
	var envelope pushEnvelope
	{
		if err := json.NewDecoder(body).Decode(&envelope); err != nil {
			return nil, errors.Wrap(err, "decoding envelope")
		}
		if err := body.Close(); err != nil {
			return nil, errors.Wrap(err, "closing request body")
		}
	}
	if len(envelope.Message.Data) == 0 {
		return nil, errors.New("envelope missing message data")
	}
	var metadata objectMetadata
	if err := json.Unmarshal(envelope.Message.Data, &metadata); err != nil {
		return nil, errors.Wrap(err, "decoding object metadata")
	}
	if metadata.Bucket == "" || metadata.Name == "" {
		return nil, errors.New("object metadata missing bucket or name")
	}
	return &ObjectEvent{
		Bucket:     metadata.Bucket,
		Name:       metadata.Name,
		Generation: metadata.Generation,
	}, nil
}

// ExtractRequest is the message handed to the extraction pipeline for an
// accepted receipt. It is published as JSON to the extraction topic or
// form-encoded onto the extraction task queue.
type ExtractRequest struct {
	FilePath string `json:"file_path" form:"file_path,required"`
	UserID   string `json:"user_id" form:"user_id,required"`
}

func (r ExtractRequest) Validate() error {
	if r.FilePath == "" || r.UserID == "" {
		return errors.New("missing file_path or user_id")
	}
	return nil
}

// IngestStatusRequest looks up the latest ingestion attempt for a receipt.
type IngestStatusRequest struct {
	UserID string `form:"user_id,required"`
	ID     string `form:"id,required"`
}

func (IngestStatusRequest) Validate() error { return nil }

// IngestRecord is the ledger entry for one ingestion attempt.
type IngestRecord struct {
	UserID      string `firestore:"user_id" json:"user_id"`
	ReceiptID   string `firestore:"receipt_id" json:"receipt_id"`
	ObjectName  string `firestore:"object_name" json:"object_name"`
	URI         string `firestore:"uri" json:"uri"`
	ContentType string `firestore:"content_type" json:"content_type"`
	SizeBytes   int64  `firestore:"size_bytes" json:"size_bytes"`
	Accepted    bool   `firestore:"accepted" json:"accepted"`
	Message     string `firestore:"message" json:"message"`
	Created     int64  `firestore:"created" json:"created"`
}

// VersionRequest requests the version of the service or one of its
// dependencies.
type VersionRequest struct {
	Service string `form:","`
}

func (VersionRequest) Validate() error { return nil }

// VersionResponse is the response to a VersionRequest.
type VersionResponse struct {
	Version string `json:"version"`
}
