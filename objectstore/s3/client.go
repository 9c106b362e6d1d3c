package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/objectstore"
)

// DefaultRegion is used when ClientConfig.Region is empty.
const DefaultRegion = "us-east-1"

// NewClient builds an S3 client from cfg. No request is sent.
func NewClient(ctx context.Context, cfg stowage.ClientConfig) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := endpointURL(cfg)

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}), nil
}

// endpointURL adds a scheme to a bare host:port endpoint.
func endpointURL(cfg stowage.ClientConfig) string {
	if cfg.Endpoint == "" || strings.Contains(cfg.Endpoint, "://") {
		return strings.TrimSuffix(cfg.Endpoint, "/")
	}
	if cfg.Secure {
		return "https://" + cfg.Endpoint
	}
	return "http://" + cfg.Endpoint
}

// PublicBase returns the unsigned URL of a bucket root.
func PublicBase(cfg stowage.ClientConfig, bucket string) string {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	endpoint := endpointURL(cfg)
	switch {
	case endpoint == "":
		if cfg.PathStyle {
			return fmt.Sprintf("https://s3.%s.amazonaws.com/%s", region, bucket)
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	case cfg.PathStyle:
		return endpoint + "/" + bucket
	default:
		scheme, host, _ := strings.Cut(endpoint, "://")
		return scheme + "://" + bucket + "." + host
	}
}

// Opener returns an objectstore.Opener that connects with cfg.
func Opener(cfg stowage.ClientConfig) objectstore.Opener {
	return func(ctx context.Context, bucket string) (objectstore.Bucket, error) {
		client, err := NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewBucket(client, s3.NewPresignClient(client), bucket, PublicBase(cfg, bucket)), nil
	}
}

// Open is a stowage.Constructor for S3 backed stores.
func Open(pathPrefix string, opts stowage.Options) (stowage.Store, error) {
	return objectstore.New(pathPrefix, opts, Opener(opts.Client))
}
