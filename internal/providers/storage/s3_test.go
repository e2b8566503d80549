package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/smallbiznis/academy/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	puts    map[string][]byte
	headErr error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, _ := io.ReadAll(in.Body)
	f.puts[*in.Key] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.puts[*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

type fakePresign struct {
	expires     time.Duration
	disposition string
}

func (f *fakePresign) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	if in.ResponseContentDisposition != nil {
		f.disposition = *in.ResponseContentDisposition
	}
	return &v4.PresignedHTTPRequest{URL: "https://bucket.example.com/" + *in.Key + "?X-Amz-Signature=abc"}, nil
}

func newTestStore() (*S3Store, *fakeObjects, *fakePresign) {
	objects := &fakeObjects{puts: map[string][]byte{}}
	presign := &fakePresign{}
	store := newS3Store(config.StorageConfig{Bucket: "certs", KeyPrefix: "/certificates/"}, objects, presign)
	store.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return store, objects, presign
}

func TestS3PutAndExistsUsePrefix(t *testing.T) {
	store, objects, _ := newTestStore()
	ctx := context.Background()

	ok, err := store.Exists(ctx, "42.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "42.pdf", "application/pdf", []byte("%PDF")))
	assert.Contains(t, objects.puts, "certificates/42.pdf")

	ok, err = store.Exists(ctx, "42.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestS3ExistsPropagatesOtherErrors(t *testing.T) {
	store, objects, _ := newTestStore()
	objects.headErr = errors.New("access denied")

	_, err := store.Exists(context.Background(), "42.pdf")
	assert.Error(t, err)
}

func TestS3SignClampsTTL(t *testing.T) {
	store, _, presign := newTestStore()

	signed, err := store.Sign(context.Background(), "42.pdf", 365*24*time.Hour, "physics-certificate.pdf")
	require.NoError(t, err)
	assert.Equal(t, MaxSignTTL, presign.expires)
	assert.Equal(t, time.Date(2026, 5, 8, 0, 0, 0, 0, time.UTC), signed.ExpiresAt)
	assert.Equal(t, `attachment; filename="physics-certificate.pdf"`, presign.disposition)
	assert.Contains(t, signed.URL, "certificates/42.pdf")
}

func TestCertificateFilename(t *testing.T) {
	assert.Equal(t, "combined-maths-nimal-perera-certificate.pdf", CertificateFilename("Combined Maths", "Nimal Perera"))
	assert.Equal(t, "certificate-certificate.pdf", CertificateFilename("", ""))
}
