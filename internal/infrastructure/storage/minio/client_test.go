package minio

import (
	"context"
	stderrors "errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

type MockObjectAPI struct {
	mock.Mock
}

func (m *MockObjectAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockObjectAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *MockObjectAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, _ := io.ReadAll(reader)
	args := m.Called(ctx, bucketName, objectName, string(data), objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

// GetObject cannot hand back a usable *minio.Object without a server, so
// only the error path is mocked; round trips are covered by the integration
// suite.
func (m *MockObjectAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return nil, args.Error(1)
}

func (m *MockObjectAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *MockObjectAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucketName, objectName, opts).Error(0)
}

var noSuchKey = minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}

type ClientTestSuite struct {
	suite.Suite
	api    *MockObjectAPI
	client *Client
	ctx    context.Context
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockObjectAPI)
	s.client = NewClientFromAPI(s.api, Config{Bucket: "state", Prefix: "chemxgen/"}, logging.NewNopLogger())
	s.ctx = context.Background()
}

func (s *ClientTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestApplyDefaults() {
	cfg := Config{}
	applyDefaults(&cfg)
	s.Equal("us-east-1", cfg.Region)
	s.Equal("chemxgen-state", cfg.Bucket)
}

func (s *ClientTestSuite) TestEnsureBucket_Exists() {
	s.api.On("BucketExists", s.ctx, "state").Return(true, nil)
	s.NoError(s.client.EnsureBucket(s.ctx))
}

func (s *ClientTestSuite) TestEnsureBucket_Creates() {
	s.api.On("BucketExists", s.ctx, "state").Return(false, nil)
	s.api.On("MakeBucket", s.ctx, "state", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)
	s.NoError(s.client.EnsureBucket(s.ctx))
}

func (s *ClientTestSuite) TestEnsureBucket_Error() {
	s.api.On("BucketExists", s.ctx, "state").Return(false, stderrors.New("denied"))
	err := s.client.EnsureBucket(s.ctx)
	s.True(errors.IsCode(err, errors.ErrCodeStoreUnavailable))
}

func (s *ClientTestSuite) TestHealthCheck() {
	s.api.On("BucketExists", s.ctx, "state").Return(true, nil).Once()
	status, err := s.client.HealthCheck(s.ctx)
	s.Require().NoError(err)
	s.True(status.Healthy)

	s.api.On("BucketExists", s.ctx, "state").Return(false, nil).Once()
	status, err = s.client.HealthCheck(s.ctx)
	s.Require().NoError(err)
	s.False(status.Healthy)
	s.Contains(status.Error, "missing")
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func TestNewClient_Unreachable(t *testing.T) {
	_, err := NewClient(context.Background(), Config{Endpoint: "127.0.0.1:1", AccessKeyID: "a", SecretAccessKey: "b"}, logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreUnavailable))
}
