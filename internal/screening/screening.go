// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package screening checks submitted images for unsafe content and for
// enough detected text to plausibly be a receipt.
package screening

import (
	"context"
	"log"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/pkg/errors"
)

var (
	// ErrUnsafeContent indicates the image failed the safety screen.
	ErrUnsafeContent = errors.New("unsafe content detected")
	// ErrInsufficientText indicates the image carries too little text to be a receipt.
	ErrInsufficientText = errors.New("insufficient text content")
)

// Screener inspects a submitted image. A nil return means the image passed
// both screens. If the annotation backend is unreachable the image is allowed
// through rather than blocking ingestion; an explicit per-image error on the
// safety screen blocks it.
type Screener interface {
	Screen(ctx context.Context, data []byte) error
}

// Annotator is the subset of the Vision image annotator used for screening.
type Annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

// VisionScreener screens images with the Cloud Vision API.
type VisionScreener struct {
	Client Annotator
	// MinTextLength is the minimum number of characters of detected text.
	MinTextLength int
}

var _ Screener = &VisionScreener{}

// NewVisionScreener builds a screener backed by the Cloud Vision API.
func NewVisionScreener(ctx context.Context, minTextLength int) (*VisionScreener, error) {
	client, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating image annotator client")
	}
	return &VisionScreener{Client: client, MinTextLength: minTextLength}, nil
}

// Screen runs the safety screen and then the text screen. Both features are
// annotated in one batch call, as separate requests so each carries its own
// per-image error.
func (s *VisionScreener) Screen(ctx context.Context, data []byte) error {
	img := &visionpb.Image{Content: data}
	resp, err := s.Client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    img,
			Features: []*visionpb.Feature{{Type: visionpb.Feature_SAFE_SEARCH_DETECTION}},
		}, {
			Image:    img,
			Features: []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		log.Println(errors.Wrap(err, "annotating image"))
		return nil
	}
	if len(resp.GetResponses()) != 2 {
		log.Printf("expected 2 annotation responses, got %d", len(resp.GetResponses()))
		return nil
	}
	safety, texts := resp.GetResponses()[0], resp.GetResponses()[1]
	if safety.GetError() != nil {
		// The safety screen could not assess the image; block it rather
		// than admit content that was never checked.
		log.Printf("safe search annotation error: %s", safety.GetError().GetMessage())
		return ErrUnsafeContent
	}
	if unsafe(safety.GetSafeSearchAnnotation()) {
		return ErrUnsafeContent
	}
	if texts.GetError() != nil {
		log.Printf("text annotation error: %s", texts.GetError().GetMessage())
	} else if textLength(texts.GetTextAnnotations()) < s.MinTextLength {
		return ErrInsufficientText
	}
	return nil
}

// unsafe reports whether any blocking category is at least LIKELY.
func unsafe(a *visionpb.SafeSearchAnnotation) bool {
	if a == nil {
		return false
	}
	for _, likelihood := range []visionpb.Likelihood{a.Adult, a.Violence, a.Racy} {
		if likelihood >= visionpb.Likelihood_LIKELY {
			return true
		}
	}
	return false
}

// textLength returns the character count of the full-text annotation. The
// first entity (when present) spans all detected text in the image.
func textLength(texts []*visionpb.EntityAnnotation) int {
	if len(texts) == 0 {
		return 0
	}
	return len(strings.TrimSpace(texts[0].Description))
}
