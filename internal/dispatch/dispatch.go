// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch hands accepted receipts to the extraction pipeline.
package dispatch

import (
	"context"
	"encoding/json"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"cloud.google.com/go/pubsub"
	gax "github.com/googleapis/gax-go/v2"
	"github.com/pkg/errors"
	"github.com/tallyops/receipt-ingest/internal/api/form"
	"github.com/tallyops/receipt-ingest/pkg/schema"
)

// Dispatcher sends an accepted receipt downstream for extraction.
type Dispatcher interface {
	Dispatch(ctx context.Context, req schema.ExtractRequest) error
}

// TopicDispatcher publishes extraction requests to a Pub/Sub topic as JSON.
type TopicDispatcher struct {
	Topic *pubsub.Topic
}

var _ Dispatcher = &TopicDispatcher{}

// NewTopicDispatcher creates a dispatcher publishing to the given topic in
// the given project.
func NewTopicDispatcher(ctx context.Context, project, topicID string) (*TopicDispatcher, error) {
	client, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, errors.Wrap(err, "creating pubsub client")
	}
	return &TopicDispatcher{Topic: client.Topic(topicID)}, nil
}

// Dispatch publishes the extraction request and waits for the server ack.
func (d *TopicDispatcher) Dispatch(ctx context.Context, req schema.ExtractRequest) error {
	payload, err := marshalExtract(req)
	if err != nil {
		return err
	}
	result := d.Topic.Publish(ctx, &pubsub.Message{Data: payload})
	if _, err := result.Get(ctx); err != nil {
		return errors.Wrap(err, "publishing extraction request")
	}
	return nil
}

func marshalExtract(req schema.ExtractRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating extraction request")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling extraction request")
	}
	return payload, nil
}

// TaskCreator is the subset of the Cloud Tasks client used for dispatch.
type TaskCreator interface {
	CreateTask(ctx context.Context, req *taskspb.CreateTaskRequest, opts ...gax.CallOption) (*taskspb.Task, error)
}

// QueueDispatcher enqueues extraction requests onto a Cloud Tasks queue
// targeting the extraction service, authenticated with an OIDC identity.
type QueueDispatcher struct {
	Client              TaskCreator
	QueuePath           string
	ServiceAccountEmail string
	ExtractorURL        string
}

var _ Dispatcher = &QueueDispatcher{}

// NewQueueDispatcher creates a dispatcher enqueuing onto the given queue.
func NewQueueDispatcher(ctx context.Context, queuePath, serviceAccountEmail, extractorURL string) (*QueueDispatcher, error) {
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating cloud tasks client")
	}
	return &QueueDispatcher{
		Client:              client,
		QueuePath:           queuePath,
		ServiceAccountEmail: serviceAccountEmail,
		ExtractorURL:        extractorURL,
	}, nil
}

// Dispatch enqueues a form-encoded POST of the extraction request.
func (d *QueueDispatcher) Dispatch(ctx context.Context, req schema.ExtractRequest) error {
	if err := req.Validate(); err != nil {
		return errors.Wrap(err, "validating extraction request")
	}
	values, err := form.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "marshalling extraction request")
	}
	task := &taskspb.CreateTaskRequest{
		Parent: d.QueuePath,
		Task: &taskspb.Task{
			MessageType: &taskspb.Task_HttpRequest{
				HttpRequest: &taskspb.HttpRequest{
					HttpMethod: taskspb.HttpMethod_POST,
					Url:        d.ExtractorURL,
					Headers: map[string]string{
						"Content-Type": "application/x-www-form-urlencoded",
					},
					Body: []byte(values.Encode()),
					AuthorizationHeader: &taskspb.HttpRequest_OidcToken{
						OidcToken: &taskspb.OidcToken{
							ServiceAccountEmail: d.ServiceAccountEmail,
						},
					},
				},
			},
		},
	}
	if _, err := d.Client.CreateTask(ctx, task); err != nil {
		return errors.Wrap(err, "creating task")
	}
	return nil
}
