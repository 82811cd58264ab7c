// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Binary ingestctl is a command line client for the receipt ingestion service.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tallyops/receipt-ingest/internal/api"
	"github.com/tallyops/receipt-ingest/internal/httpx"
	"github.com/tallyops/receipt-ingest/internal/oauth"
	"github.com/tallyops/receipt-ingest/pkg/schema"
)

var rootCmd = &cobra.Command{
	Use:   "ingestctl",
	Short: "A client for the receipt ingestion service",
}

var (
	apiFlag = flag.String("api", "", "URL of the ingestion service")
	user    = flag.String("user", "", "user on whose behalf to act")
)

func apiClient(ctx context.Context) (httpx.BasicClient, *url.URL, error) {
	if *apiFlag == "" {
		return nil, nil, errors.New("API endpoint not provided")
	}
	apiURL, err := url.Parse(*apiFlag)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parsing API endpoint")
	}
	var client httpx.BasicClient = http.DefaultClient
	if strings.Contains(apiURL.Host, "run.app") {
		// Cloud Run requires an authorized client.
		apiURL.Scheme = "https"
		client, err = oauth.AuthorizedUserIDClient(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "creating authorized HTTP client")
		}
	}
	return &httpx.WithUserAgent{BasicClient: client, UserAgent: "ingestctl"}, apiURL, nil
}

var submit = &cobra.Command{
	Use:   "submit --api <URI> --user <ID> <file>",
	Short: "Submit a receipt document for ingestion",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if *user == "" {
			log.Fatal("user must be provided")
		}
		doc, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatal(errors.Wrap(err, "reading document"))
		}
		client, apiURL, err := apiClient(ctx)
		if err != nil {
			log.Fatal(err)
		}
		stub := api.Stub[schema.IngestRequest, schema.IngestResponse](client, apiURL.JoinPath("ingest"))
		resp, err := stub(ctx, schema.IngestRequest{
			UserID: *user,
			Data:   base64.StdEncoding.EncodeToString(doc),
		})
		if err != nil {
			color.New(color.FgRed).Fprintln(os.Stderr, "rejected")
			log.Fatal(err)
		}
		color.New(color.FgGreen).Printf("accepted %s\n", resp.ID)
		fmt.Printf("  %s (%s, %d bytes)\n", resp.URI, resp.ContentType, resp.SizeBytes)
	},
}

var getStatus = &cobra.Command{
	Use:   "status --api <URI> --user <ID> <receipt-id>",
	Short: "Show the latest ingestion attempt for a receipt",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if *user == "" {
			log.Fatal("user must be provided")
		}
		client, apiURL, err := apiClient(ctx)
		if err != nil {
			log.Fatal(err)
		}
		stub := api.Stub[schema.IngestStatusRequest, schema.IngestRecord](client, apiURL.JoinPath("get"))
		rec, err := stub(ctx, schema.IngestStatusRequest{UserID: *user, ID: args[0]})
		if err != nil {
			log.Fatal(err)
		}
		when := time.UnixMilli(rec.Created).UTC().Format(time.RFC3339)
		if rec.Accepted {
			color.New(color.FgGreen).Printf("accepted at %s\n", when)
			fmt.Printf("  %s (%s, %d bytes)\n", rec.URI, rec.ContentType, rec.SizeBytes)
		} else {
			color.New(color.FgRed).Printf("rejected at %s: %s\n", when, rec.Message)
		}
	},
}

var version = &cobra.Command{
	Use:   "version --api <URI>",
	Short: "Show the version of the ingestion service",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client, apiURL, err := apiClient(ctx)
		if err != nil {
			log.Fatal(err)
		}
		stub := api.Stub[schema.VersionRequest, schema.VersionResponse](client, apiURL.JoinPath("version"))
		resp, err := stub(ctx, schema.VersionRequest{})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(resp.Version)
	},
}

func init() {
	submit.Flags().AddGoFlag(flag.Lookup("api"))
	submit.Flags().AddGoFlag(flag.Lookup("user"))
	getStatus.Flags().AddGoFlag(flag.Lookup("api"))
	getStatus.Flags().AddGoFlag(flag.Lookup("user"))
	version.Flags().AddGoFlag(flag.Lookup("api"))
	rootCmd.AddCommand(submit)
	rootCmd.AddCommand(getStatus)
	rootCmd.AddCommand(version)
}

func main() {
	flag.Parse()
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
