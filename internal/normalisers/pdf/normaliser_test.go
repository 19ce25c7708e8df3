package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
)

func TestSupports(t *testing.T) {
	normaliser := New()

	assert.True(t, normaliser.Supports(&driven.RawInput{
		Payload:  domain.Payload{Kind: domain.PayloadFile, FileID: "f1"},
		MIMEType: "application/pdf",
	}))
	assert.False(t, normaliser.Supports(&driven.RawInput{
		Payload:  domain.Payload{Kind: domain.PayloadFile, FileID: "f1"},
		MIMEType: "image/png",
	}))
	assert.False(t, normaliser.Supports(&driven.RawInput{
		Payload: domain.Payload{Kind: domain.PayloadText, Text: "hi"},
	}))
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_NilInput(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_EmptyData(t *testing.T) {
	result, err := New().Normalise(context.Background(), &driven.RawInput{
		Payload:  domain.Payload{Kind: domain.PayloadFile, FileID: "f1"},
		MIMEType: "application/pdf",
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_CorruptData(t *testing.T) {
	result, err := New().Normalise(context.Background(), &driven.RawInput{
		Payload:  domain.Payload{Kind: domain.PayloadFile, FileID: "f1"},
		Data:     []byte("this is not a pdf"),
		MIMEType: "application/pdf",
		FileName: "broken.pdf",
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, domain.IsValidation(err))
	assert.False(t, domain.IsRetryable(err))
}

func TestTitleFromFileName(t *testing.T) {
	tests := []struct {
		fileName string
		want     string
	}{
		{"attention_is_all-you-need.pdf", "attention is all you need"},
		{"report.pdf", "report"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, titleFromFileName(tt.fileName))
	}
}
