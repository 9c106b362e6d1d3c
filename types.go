package stowage

import (
	"time"
)

// DefaultURLExpires is the lifetime of signed URLs when Options.URLExpires is unset.
const DefaultURLExpires = 30 * time.Minute

// Options configures a store. Each backend reads only the fields it needs.
type Options struct {
	// RootPath is the base directory of filesystem stores.
	RootPath string
	// Bucket selects the bucket of object stores.
	Bucket BucketName
	// Namespace, when set, is prepended to every object key.
	Namespace Namespace
	// URLExpires is the default lifetime of signed URLs.
	URLExpires time.Duration
	// AllowUnscopedClear lets Clear remove a whole bucket or root when the
	// store has neither a path prefix nor a namespace.
	AllowUnscopedClear bool

	Client  ClientConfig
	Gateway GatewayConfig
}

// ClientConfig holds connection settings for remote object stores.
type ClientConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Secure    bool
	PathStyle bool
}

// GatewayConfig describes the HTTP gateway that serves filesystem stores.
// Filesystem stores sign URLs against it.
type GatewayConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Expires returns URLExpires, or DefaultURLExpires when unset.
func (o Options) Expires() time.Duration {
	if o.URLExpires <= 0 {
		return DefaultURLExpires
	}
	return o.URLExpires
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

type UploadOptions struct {
	ContentType string
	Metadata    map[string]string
}

type UploadOption func(*UploadOptions)

// WithContentType overrides the content type inferred from the file name.
func WithContentType(ct string) UploadOption {
	return func(o *UploadOptions) {
		o.ContentType = ct
	}
}

// WithMetadata attaches user metadata to the uploaded object. Backends
// without metadata support ignore it.
func WithMetadata(md map[string]string) UploadOption {
	return func(o *UploadOptions) {
		if o.Metadata == nil {
			o.Metadata = make(map[string]string, len(md))
		}
		for k, v := range md {
			o.Metadata[k] = v
		}
	}
}

func ApplyUploadOptions(opts []UploadOption) UploadOptions {
	var o UploadOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type URLOptions struct {
	Expires             time.Duration
	ResponseContentType string
}

type URLOption func(*URLOptions)

// WithExpires sets the lifetime of a signed URL.
func WithExpires(d time.Duration) URLOption {
	return func(o *URLOptions) {
		o.Expires = d
	}
}

// WithResponseContentType overrides the Content-Type the server answers with.
func WithResponseContentType(ct string) URLOption {
	return func(o *URLOptions) {
		o.ResponseContentType = ct
	}
}

// ApplyURLOptions applies opts over the default expiry.
func ApplyURLOptions(defaultExpires time.Duration, opts []URLOption) URLOptions {
	o := URLOptions{Expires: defaultExpires}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Expires <= 0 {
		o.Expires = defaultExpires
	}
	return o
}
