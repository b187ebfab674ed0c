package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PapNorbert/WatchWise/pkg/log"
)

func TestLogWithTarget(t *testing.T) {
	var buf bytes.Buffer
	ctx := log.WithLogger(context.Background(), log.NewWithWriter(log.Config{Level: "info"}, &buf))

	LogWithTarget(ctx, ActionSendMessage, "g1", "01HX", "message committed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, log.LogTypeAudit, entry[log.FieldLogType])
	assert.Equal(t, ActionSendMessage, entry[FieldAction])
	assert.Equal(t, "g1", entry[log.FieldRoomID])
	assert.Equal(t, "01HX", entry[FieldTargetID])
}
