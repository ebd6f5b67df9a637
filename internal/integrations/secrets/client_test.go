package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	values map[string]string
	err    error
	calls  int
}

func (f *fakeAPI) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	value, ok := f.values[aws.ToString(in.SecretId)]
	if !ok {
		return &secretsmanager.GetSecretValueOutput{}, nil
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(value)}, nil
}

func TestGetSecret_FetchesAndCaches(t *testing.T) {
	api := &fakeAPI{values: map[string]string{"elevenlabs/api-key": "sk-123"}}
	c, err := New(api)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		value, err := c.GetSecret(context.Background(), "elevenlabs/api-key")
		require.NoError(t, err)
		require.Equal(t, "sk-123", value)
	}
	require.Equal(t, 1, api.calls)
}

func TestGetSecret_CachesPerID(t *testing.T) {
	api := &fakeAPI{values: map[string]string{"a": "1", "b": "2"}}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.GetSecret(context.Background(), "a")
	require.NoError(t, err)
	_, err = c.GetSecret(context.Background(), "b")
	require.NoError(t, err)
	require.Equal(t, 2, api.calls)
}

func TestGetSecret_InvalidateForcesRefetch(t *testing.T) {
	api := &fakeAPI{values: map[string]string{"a": "1"}}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.GetSecret(context.Background(), "a")
	require.NoError(t, err)
	c.Invalidate()
	_, err = c.GetSecret(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, 2, api.calls)
}

func TestGetSecret_ErrorsAreNotCached(t *testing.T) {
	api := &fakeAPI{err: errors.New("access denied")}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.GetSecret(context.Background(), "a")
	require.Error(t, err)

	api.err = nil
	api.values = map[string]string{"a": "1"}
	value, err := c.GetSecret(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, "1", value)
}

func TestGetSecret_MissingStringValue(t *testing.T) {
	c, err := New(&fakeAPI{})
	require.NoError(t, err)

	_, err = c.GetSecret(context.Background(), "a")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no string value")
}

func TestGetSecret_BlankIDRejected(t *testing.T) {
	c, err := New(&fakeAPI{})
	require.NoError(t, err)

	_, err = c.GetSecret(context.Background(), "  ")
	require.Error(t, err)
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
