package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
)

func TestWorkerCmd_Use(t *testing.T) {
	assert.Equal(t, "worker", workerCmd.Use)
	assert.Contains(t, workerCmd.Long, "normalise, chunk, embed")
}

func TestBuildNormaliserRegistry_CoversPayloadKinds(t *testing.T) {
	registry := buildNormaliserRegistry(nil)

	inputs := []*driven.RawInput{
		{Payload: domain.Payload{Kind: domain.PayloadText, Text: "hi"}},
		{Payload: domain.Payload{Kind: domain.PayloadFile, FileID: "f"}, MIMEType: "text/plain",
			Data: []byte("plain")},
	}
	for _, input := range inputs {
		result, err := registry.Normalise(context.Background(), input)
		require.NoError(t, err)
		assert.NotEmpty(t, result.Text)
	}
}

func TestBuildNormaliserRegistry_ImageWithoutLLM(t *testing.T) {
	registry := buildNormaliserRegistry(nil)

	_, err := registry.Normalise(context.Background(), &driven.RawInput{
		Payload:  domain.Payload{Kind: domain.PayloadFile, FileID: "f"},
		Data:     []byte{0x89, 'P', 'N', 'G'},
		MIMEType: "image/png",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.True(t, domain.IsConfiguration(err))
}

func TestBuildNormaliserRegistry_UnknownMIME(t *testing.T) {
	registry := buildNormaliserRegistry(nil)

	_, err := registry.Normalise(context.Background(), &driven.RawInput{
		Payload:  domain.Payload{Kind: domain.PayloadFile, FileID: "f"},
		Data:     []byte{0x00, 0x01},
		MIMEType: "application/octet-stream",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
