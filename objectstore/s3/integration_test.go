package s3_test

import (
	"testing"

	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/internal/miniotest"
	"github.com/sagarc03/stowage/internal/storetest"
	"github.com/sagarc03/stowage/objectstore/s3"
	"github.com/stretchr/testify/require"
)

func TestStore_ContractAgainstMinIO(t *testing.T) {
	cfg := miniotest.Server(t)

	storetest.Run(t, func(t *testing.T) func(string) stowage.Store {
		bucket := miniotest.NewBucket(t, cfg)
		return func(prefix string) stowage.Store {
			store, err := s3.Open(prefix, stowage.Options{
				Bucket: stowage.SingleBucket(bucket),
				Client: cfg,
			})
			require.NoError(t, err)
			return store
		}
	})
}
