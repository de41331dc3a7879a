package audit_config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "session.events", cfg.In.Topic)
	assert.Equal(t, "session-audit", cfg.AsConsumerConfig().GroupID)

	p := filepath.Join(t.TempDir(), "audit.yaml")
	require.NoError(t, os.WriteFile(p, []byte("kafka_in:\n  brokers: [k1:9092, k2:9092]\n  from_beginning: true\n"), 0o600))
	t.Setenv("KAFKA_IN_GROUP_ID", "audit-2")

	cfg, err = Load(p)
	require.NoError(t, err)
	cc := cfg.AsConsumerConfig()
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cc.Brokers)
	assert.True(t, cc.FromBeginning)
	assert.Equal(t, "audit-2", cc.GroupID)
}

func TestLoad_EmptyGroup(t *testing.T) {
	p := filepath.Join(t.TempDir(), "audit.yaml")
	require.NoError(t, os.WriteFile(p, []byte("kafka_in:\n  group_id: \"\"\n"), 0o600))

	_, err := Load(p)
	var ce ErrConfig
	assert.ErrorAs(t, err, &ce)
}
