package postgres

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_CompressRoundTrip(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]string{"notes": strings.Repeat("recount shelf ", 2000)})
	require.NoError(t, err)

	entry := AuditEntry{Changes: payload}
	svc.compress(&entry)

	assert.Equal(t, CompressionZstd, entry.CompressionAlgo)
	assert.Nil(t, entry.Changes)
	assert.Less(t, len(entry.ChangesCompressed), len(payload))

	require.NoError(t, svc.decompress(&entry))
	assert.JSONEq(t, string(payload), string(entry.Changes))
	assert.Nil(t, entry.ChangesCompressed)
}

func TestAuditService_SmallPayloadStaysPlain(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	entry := AuditEntry{Changes: json.RawMessage(`{"status":"SUBMIT"}`)}
	svc.compress(&entry)

	assert.Equal(t, CompressionNone, entry.CompressionAlgo)
	assert.Nil(t, entry.ChangesCompressed)
	require.NoError(t, svc.decompress(&entry))
	assert.JSONEq(t, `{"status":"SUBMIT"}`, string(entry.Changes))
}
