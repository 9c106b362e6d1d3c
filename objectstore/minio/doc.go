// Package minio implements objectstore.Bucket with the MinIO client.
//
// It talks to MinIO and to any other S3 compatible service. The endpoint is
// a bare host:port, or a URL whose scheme decides TLS.
package minio
