// Package stowage provides a uniform storage abstraction over a local
// filesystem tree and S3-compatible object stores.
//
// Application code uploads, reads, copies, deletes and enumerates files under
// a logical path prefix without knowing which backend holds them. Every store
// is bound to one backend, one path prefix and one set of Options.
//
// # Key Components
//
//   - Store: the operation contract shared by every backend
//   - URLSigner: signed and public URLs for stored objects
//   - Registry: label to constructor table used to create stores
//   - Namespace: optional per-call key prefix for object stores
//   - BucketName: a single bucket, or a bucket per path prefix
//   - SignatureVerifier: presigned URL verification (AWS SigV4 and native)
//
// # Example Usage
//
//	store, err := stores.New("object", "invoices", stowage.Options{
//	    Bucket:    stowage.SingleBucket("acme-files"),
//	    Namespace: stowage.StaticNamespace("tenant-42"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	// Upload a local file to tenant-42/invoices/2024/march/report.pdf
//	err = store.Upload(ctx, "2024/march", "/tmp/report.pdf")
//
//	// Read it back
//	data, err := store.Read(ctx, "2024/march/report.pdf")
//
// See the filesystem and objectstore packages for the backends and the
// stores package for the default registry.
package stowage
