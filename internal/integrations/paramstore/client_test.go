package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	in    *ssm.GetParameterInput
	value string
	err   error
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{
		Parameter: &types.Parameter{Value: aws.String(f.value)},
	}, nil
}

func TestGetParameter_RequestsDecryptedValue(t *testing.T) {
	api := &fakeAPI{value: "model-id"}
	c, err := New(api)
	require.NoError(t, err)

	value, err := c.GetParameter(context.Background(), "/ringring/config/bedrock_model")
	require.NoError(t, err)
	require.Equal(t, "model-id", value)
	require.Equal(t, "/ringring/config/bedrock_model", aws.ToString(api.in.Name))
	require.True(t, aws.ToBool(api.in.WithDecryption))
}

func TestGetParameter_BlankNameRejected(t *testing.T) {
	c, err := New(&fakeAPI{})
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "   ")
	require.Error(t, err)
}

func TestGetParameter_APIErrorWrapped(t *testing.T) {
	api := &fakeAPI{err: errors.New("ParameterNotFound")}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "/missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "/missing")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
