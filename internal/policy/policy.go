// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy holds the submission validation policy: how large a document
// may be, which content types are accepted, and how aggressively images are
// screened.
package policy

import (
	"os"
	"slices"

	"github.com/pkg/errors"
	"github.com/tallyops/receipt-ingest/pkg/receipt"
	yaml "gopkg.in/yaml.v3"
)

// Policy is the validation policy applied to every submission.
type Policy struct {
	// MaxSizeMB is the largest accepted document, in megabytes.
	MaxSizeMB int64 `yaml:"max_size_mb"`
	// AllowedContentTypes are the accepted detected content types.
	AllowedContentTypes []string `yaml:"allowed_content_types"`
	// MinTextLength is the minimum number of characters the text screen must
	// detect in an image for it to plausibly be a receipt.
	MinTextLength int `yaml:"min_text_length"`
}

// Default returns the policy applied when no policy file is configured.
func Default() Policy {
	return Policy{
		MaxSizeMB: 5,
		AllowedContentTypes: []string{
			string(receipt.JPEG),
			string(receipt.PNG),
			"image/jpg",
			string(receipt.WebP),
			string(receipt.PDF),
		},
		MinTextLength: 10,
	}
}

// Load reads a policy file, applying defaults for any omitted field.
func Load(path string) (Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, errors.Wrap(err, "reading policy file")
	}
	p := Default()
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Policy{}, errors.Wrap(err, "parsing policy file")
	}
	if p.MaxSizeMB <= 0 {
		return Policy{}, errors.New("max_size_mb must be positive")
	}
	if len(p.AllowedContentTypes) == 0 {
		return Policy{}, errors.New("allowed_content_types must not be empty")
	}
	return p, nil
}

// MaxBytes returns the size limit in bytes.
func (p Policy) MaxBytes() int64 {
	return p.MaxSizeMB << 20
}

// Allows reports whether the detected content type is accepted.
func (p Policy) Allows(ct receipt.ContentType) bool {
	return slices.Contains(p.AllowedContentTypes, string(ct))
}
