// Package translate wraps Amazon Translate for message translation.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/translate"
)

// translateAPI is the minimal Translate interface required by Client.
type translateAPI interface {
	TranslateText(ctx context.Context, in *translate.TranslateTextInput, optFns ...func(*translate.Options)) (*translate.TranslateTextOutput, error)
}

// Client wraps Amazon Translate.
type Client struct {
	api translateAPI
}

// New creates a Client with the given Translate API implementation.
func New(api translateAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("translate: api must not be nil")
	}
	return &Client{api: api}, nil
}

// Translate converts text between the given language codes.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("translate: text must not be empty")
	}
	if sourceLang == "" {
		sourceLang = "en"
	}
	if targetLang == "" {
		targetLang = "ko"
	}

	out, err := c.api.TranslateText(ctx, &translate.TranslateTextInput{
		Text:               aws.String(text),
		SourceLanguageCode: aws.String(sourceLang),
		TargetLanguageCode: aws.String(targetLang),
	})
	if err != nil {
		return "", fmt.Errorf("translate: %s to %s: %w", sourceLang, targetLang, err)
	}
	if out.TranslatedText == nil {
		return "", errors.New("translate: empty translation result")
	}
	return *out.TranslatedText, nil
}
