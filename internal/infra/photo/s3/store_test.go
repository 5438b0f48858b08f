package s3

import (
	"context"
	"testing"

	"clamflow/internal/photo/core"
)

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error without bucket")
	}
}

func TestOpenFromEnvRequiresBucket(t *testing.T) {
	t.Setenv("CLAMFLOW_PHOTO_S3_BUCKET", "")
	if _, err := OpenFromEnv(context.Background()); err == nil {
		t.Fatalf("expected error without bucket env")
	}
}

func TestNewWithCustomEndpoint(t *testing.T) {
	store, err := New(context.Background(), Config{
		Bucket:    "photos",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		PathStyle: true,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	if store.bucket != "photos" || store.baseURL == nil || store.baseURL.Host != "127.0.0.1:9000" {
		t.Fatalf("config not applied: bucket=%s baseURL=%v", store.bucket, store.baseURL)
	}
}

func TestNewWithStaticCredentials(t *testing.T) {
	ctx := context.Background()
	store, err := New(ctx, Config{
		Bucket:          "photos",
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "AKTEST",
		SecretAccessKey: "secret",
		SessionToken:    "token",
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	creds, err := store.client.Options().Credentials.Retrieve(ctx)
	if err != nil {
		t.Fatalf("retrieve credentials: %v", err)
	}
	if creds.AccessKeyID != "AKTEST" || creds.SecretAccessKey != "secret" || creds.SessionToken != "token" {
		t.Fatalf("static credentials not applied: %+v", creds)
	}
}
