package messaging

import (
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    CommandType
		wantErr bool
	}{
		{name: "run import", data: `{"command_type":"run_import"}`, want: RunImportCommand},
		{name: "enable", data: `{"command_type":"enable_schedule"}`, want: EnableScheduleCommand},
		{name: "unknown kept as is", data: `{"command_type":"reindex"}`, want: "reindex"},
		{name: "missing type", data: `{"payload":{}}`, wantErr: true},
		{name: "not json", data: `run_import`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd.CommandType)
		})
	}
}

func TestNewCommand_RoundTrip(t *testing.T) {
	data, err := NewCommand(DisableScheduleCommand)
	require.NoError(t, err)

	cmd, err := ParseCommand(data)
	require.NoError(t, err)
	assert.Equal(t, DisableScheduleCommand, cmd.CommandType)
}

func TestKafkaMessageConversion(t *testing.T) {
	km := messageToKafkaMessage("order-import-events", []byte(`{"a":1}`), "A1",
		map[string]string{"source": "test"})

	require.NotNil(t, km.TopicPartition.Topic)
	assert.Equal(t, "order-import-events", *km.TopicPartition.Topic)
	assert.Equal(t, []byte("A1"), km.Key)

	msg := kafkaMessageToMessage(km)
	assert.Equal(t, "order-import-events", msg.Topic)
	assert.Equal(t, "A1", msg.Key)
	assert.Equal(t, "test", msg.Headers["source"])
	assert.NotEmpty(t, msg.ID)
	assert.WithinDuration(t, time.Now(), msg.PublishedAt, 5*time.Second)

	empty := messageToKafkaMessage("t", nil, "", nil)
	assert.Nil(t, empty.Key)
	assert.Equal(t, kafka.PartitionAny, empty.TopicPartition.Partition)
}
