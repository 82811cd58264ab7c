// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package blobstore persists receipt documents.
package blobstore

import (
	"context"
	stderrors "errors"
	"io"
	"net/url"
	"os"
	"path"

	gcs "cloud.google.com/go/storage"
	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
	"github.com/tallyops/receipt-ingest/pkg/receipt"
	"google.golang.org/api/option"
)

// ErrObjectNotFound indicates the requested document could not be found.
var ErrObjectNotFound = errors.New("object not found")

// Store is a storage mechanism for receipt documents.
type Store interface {
	Reader(ctx context.Context, r receipt.Receipt) (io.ReadCloser, error)
	Writer(ctx context.Context, r receipt.Receipt) (io.WriteCloser, error)
	URL(r receipt.Receipt) *url.URL
}

// Fetcher reads a raw object out of an arbitrary bucket. Used to pull
// documents referenced by storage notifications before they have a Receipt
// identity.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, name string) ([]byte, error)
}

// GCSStore is a receipt store backed by a GCS bucket.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

var (
	_ Store   = &GCSStore{}
	_ Fetcher = &GCSStore{}
)

// NewGCSStore creates a receipt store on the given bucket.
func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating GCS client")
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// URL returns the gs:// location of the receipt.
func (s *GCSStore) URL(r receipt.Receipt) *url.URL {
	return r.URI(s.bucket)
}

// Reader returns a reader for the given receipt.
func (s *GCSStore) Reader(ctx context.Context, r receipt.Receipt) (io.ReadCloser, error) {
	obj := s.client.Bucket(s.bucket).Object(r.ObjectName())
	reader, err := obj.NewReader(ctx)
	if err != nil {
		if err == gcs.ErrObjectNotExist {
			err = stderrors.Join(err, ErrObjectNotFound)
		}
		return nil, errors.Wrapf(err, "creating reader for %s", r.ObjectName())
	}
	return reader, nil
}

// Writer returns a writer for the given receipt, recording its content type
// on the stored object.
func (s *GCSStore) Writer(ctx context.Context, r receipt.Receipt) (io.WriteCloser, error) {
	obj := s.client.Bucket(s.bucket).Object(r.ObjectName())
	w := obj.NewWriter(ctx)
	w.ContentType = string(r.ContentType)
	return w, nil
}

// Fetch reads the full content of an object in an arbitrary bucket.
func (s *GCSStore) Fetch(ctx context.Context, bucket, name string) ([]byte, error) {
	reader, err := s.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		if err == gcs.ErrObjectNotExist {
			err = stderrors.Join(err, ErrObjectNotFound)
		}
		return nil, errors.Wrapf(err, "creating reader for gs://%s/%s", bucket, name)
	}
	defer reader.Close()
	b, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "reading object")
	}
	return b, nil
}

// FilesystemStore is a receipt store on a billy filesystem. Used for tests
// and local runs.
type FilesystemStore struct {
	fs billy.Filesystem
}

var _ Store = &FilesystemStore{}

// NewFilesystemStore creates a receipt store on the given filesystem.
func NewFilesystemStore(fs billy.Filesystem) *FilesystemStore {
	return &FilesystemStore{fs: fs}
}

// URL returns a file:// location of the receipt.
func (s *FilesystemStore) URL(r receipt.Receipt) *url.URL {
	return &url.URL{Scheme: "file", Path: "/" + r.ObjectName()}
}

// Reader returns a reader for the given receipt.
func (s *FilesystemStore) Reader(_ context.Context, r receipt.Receipt) (io.ReadCloser, error) {
	f, err := s.fs.Open(r.ObjectName())
	if err != nil {
		if os.IsNotExist(err) {
			err = stderrors.Join(err, ErrObjectNotFound)
		}
		return nil, errors.Wrapf(err, "opening %s", r.ObjectName())
	}
	return f, nil
}

// Writer returns a writer for the given receipt.
func (s *FilesystemStore) Writer(_ context.Context, r receipt.Receipt) (io.WriteCloser, error) {
	name := r.ObjectName()
	if err := s.fs.MkdirAll(path.Dir(name), 0755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", path.Dir(name))
	}
	f, err := s.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", name)
	}
	return f, nil
}
