// Package s3 provides an objectstore.Bucket backed by Amazon S3 or any
// S3 compatible service, using aws-sdk-go-v2.
//
// # Usage
//
//	store, err := s3.Open("invoices", stowage.Options{
//	    Bucket: stowage.SingleBucket("acme-files"),
//	    Client: stowage.ClientConfig{Region: "eu-west-1"},
//	})
//
// Credentials come from ClientConfig when AccessKey is set, otherwise from
// the default AWS credential chain. Set Endpoint and PathStyle for MinIO,
// LocalStack and similar services.
package s3
