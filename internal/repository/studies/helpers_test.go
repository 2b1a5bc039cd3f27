package studies

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/study-store/internal/codec"
)

func listKeys(raw []byte) ([]string, error) {
	return codec.UnmarshalKeys(raw)
}

func mustMarshalKeys(t *testing.T, keys []string) []byte {
	t.Helper()

	data, err := codec.MarshalKeys(keys)
	require.NoError(t, err)

	return data
}
