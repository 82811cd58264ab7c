// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package receipt defines the domain types for receipt documents moving
// through the ingestion pipeline.
package receipt

import (
	"bytes"
	"fmt"
	"net/url"
	"path"

	"github.com/google/uuid"
)

// ContentType is the detected media type of a receipt document.
type ContentType string

const (
	JPEG ContentType = "image/jpeg"
	PNG  ContentType = "image/png"
	WebP ContentType = "image/webp"
	PDF  ContentType = "application/pdf"

	// Unknown is assigned to documents whose signature matches no supported type.
	Unknown ContentType = "application/octet-stream"
)

// IsImage reports whether the content type is a raster image (as opposed to a
// PDF or unrecognized document).
func (ct ContentType) IsImage() bool {
	return ct == JPEG || ct == PNG || ct == WebP
}

// Ext returns the filename extension used when naming stored objects.
func (ct ContentType) Ext() string {
	return path.Base(string(ct))
}

// Sniff detects the content type of a document from its leading bytes.
//
// Only the formats accepted by the pipeline are distinguished; everything
// else is Unknown. Detection is signature-based and never trusts
// client-provided metadata.
func Sniff(data []byte) ContentType {
	switch {
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return JPEG
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return PNG
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return WebP
	case bytes.HasPrefix(data, []byte("%PDF")):
		return PDF
	default:
		return Unknown
	}
}

// ObjectPrefix is the storage path under which accepted receipts are staged
// for extraction.
const ObjectPrefix = "processing-receipts"

// Receipt identifies a single accepted document.
type Receipt struct {
	UserID      string
	ID          string
	ContentType ContentType
}

// New mints a Receipt with a fresh ID for the given owner and type.
func New(userID string, ct ContentType) Receipt {
	return Receipt{UserID: userID, ID: uuid.New().String(), ContentType: ct}
}

// ObjectName returns the canonical storage object name for the receipt.
func (r Receipt) ObjectName() string {
	return fmt.Sprintf("%s/%s-%s.%s", ObjectPrefix, r.UserID, r.ID, r.ContentType.Ext())
}

// URI returns the gs:// location of the receipt within the given bucket.
func (r Receipt) URI(bucket string) *url.URL {
	return &url.URL{Scheme: "gs", Host: bucket, Path: "/" + r.ObjectName()}
}
