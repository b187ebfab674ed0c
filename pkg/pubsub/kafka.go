package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	plog "github.com/PapNorbert/WatchWise/pkg/log"
)

// channelToTopicAndKey maps a room channel onto a Kafka topic and the room
// key. All rooms share one topic; keying by room keeps a room on a single
// partition.
//
//	"chat:room:42:to_gateway" → topic "chat-to-gateway", key "42"
func channelToTopicAndKey(channel string) (topic, key string, err error) {
	// {prefix}:room:{roomID}:to_{target}, roomID may contain ':'.
	parts := strings.Split(channel, ":")
	if len(parts) < 4 || parts[1] != "room" {
		return "", "", fmt.Errorf("invalid channel format: %s", channel)
	}
	roomID := strings.Join(parts[2:len(parts)-1], ":")
	suffix := parts[len(parts)-1]
	if roomID == "" || !strings.HasPrefix(suffix, "to_") {
		return "", "", fmt.Errorf("invalid channel format: %s", channel)
	}
	return parts[0] + "-" + strings.ReplaceAll(suffix, "_", "-"), roomID, nil
}

// patternToTopic maps a room channel pattern onto its topic.
//
//	"chat:room:*:to_gateway" → "chat-to-gateway"
func patternToTopic(pattern string) (string, error) {
	topic, _, err := channelToTopicAndKey(strings.ReplaceAll(pattern, "*", "any"))
	return topic, err
}

var groupIDRegexp = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeGroupID replaces characters Kafka rejects in consumer group ids.
func sanitizeGroupID(s string) string {
	return groupIDRegexp.ReplaceAllString(s, "-")
}

// decodeKafkaEvent unwraps an Event from a consumed record.
func decodeKafkaEvent(m *kafka.Message) (*Event, error) {
	var event Event
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.RoomID == "" {
		event.RoomID = string(m.Key)
	}
	return &event, nil
}

// KafkaPubSub carries gateway events over Kafka. Each SubscribePattern call
// gets its own consumer in the configured group.
type KafkaPubSub struct {
	producer *kafka.Producer
	config   KafkaConfig
	doneCh   chan struct{}

	mu        sync.Mutex
	consumers map[string]*kafkaConsumer // pattern -> consumer
}

type kafkaConsumer struct {
	consumer *kafka.Consumer
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewKafkaPubSub connects the producer and makes sure the configured topics
// exist.
func NewKafkaPubSub(cfg KafkaConfig) (*KafkaPubSub, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"enable.idempotence": true,
		"linger.ms":          5,
		"compression.type":   "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	k := &KafkaPubSub{
		producer:  p,
		config:    cfg,
		doneCh:    make(chan struct{}),
		consumers: make(map[string]*kafkaConsumer),
	}
	go k.watchDeliveries()

	if err := k.ensureTopics(); err != nil {
		l := plog.L()
		l.Warn().Err(err).Msg("could not ensure kafka relay topics")
	}
	return k, nil
}

func (k *KafkaPubSub) ensureTopics() error {
	if len(k.config.Topics) == 0 {
		return nil
	}
	admin, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	partitions := k.config.Partitions
	if partitions <= 0 {
		partitions = 4
	}
	specs := make([]kafka.TopicSpecification, len(k.config.Topics))
	for i, name := range k.config.Topics {
		specs[i] = kafka.TopicSpecification{Topic: name, NumPartitions: partitions, ReplicationFactor: 1}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	results, err := admin.CreateTopics(ctx, specs)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	for _, r := range results {
		if code := r.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			l := plog.L()
			l.Warn().Str("topic", r.Topic).Str("error", r.Error.String()).Msg("failed to create kafka topic")
		}
	}
	return nil
}

func (k *KafkaPubSub) watchDeliveries() {
	defer close(k.doneCh)
	for e := range k.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			l := plog.L()
			l.Error().Err(m.TopicPartition.Error).Str(plog.FieldRoomID, string(m.Key)).Msg("kafka relay delivery failed")
		}
	}
}

// Publish produces the event keyed by the channel's room.
func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	topic, key, err := channelToTopicAndKey(channel)
	if err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          data,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce event: %w", err)
	}
	return nil
}

// SubscribePattern consumes the pattern's topic from the latest offset. A
// second call for the same pattern replaces the first consumer.
func (k *KafkaPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	topic, err := patternToTopic(pattern)
	if err != nil {
		return nil, err
	}

	groupID := k.config.GroupID
	if groupID == "" {
		groupID = "chat-gateway"
	}
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  k.config.Brokers,
		"group.id":           sanitizeGroupID(groupID),
		"auto.offset.reset":  "latest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	if err := c.Subscribe(topic, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &kafkaConsumer{consumer: c, cancel: cancel, done: make(chan struct{})}
	events := make(chan *Event, 100)

	k.mu.Lock()
	previous := k.consumers[pattern]
	k.consumers[pattern] = sub
	k.mu.Unlock()
	if previous != nil {
		previous.stop()
	}

	go sub.poll(subCtx, events)
	return events, nil
}

// poll forwards consumed events until ctx ends. A full events channel
// applies backpressure instead of dropping.
func (s *kafkaConsumer) poll(ctx context.Context, events chan<- *Event) {
	defer close(s.done)
	defer close(events)

	for ctx.Err() == nil {
		switch e := s.consumer.Poll(500).(type) {
		case nil:
		case *kafka.Message:
			event, err := decodeKafkaEvent(e)
			if err != nil {
				l := plog.L()
				l.Warn().Err(err).Msg("kafka relay: dropping undecodable record")
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		case kafka.Error:
			l := plog.L()
			l.Error().Str("error", e.Error()).Bool("fatal", e.IsFatal()).Msg("kafka relay consumer error")
			if e.IsFatal() {
				return
			}
		}
	}
}

func (s *kafkaConsumer) stop() {
	s.cancel()
	<-s.done
	s.consumer.Close()
}

// Close stops every consumer and flushes the producer.
func (k *KafkaPubSub) Close() error {
	k.mu.Lock()
	consumers := k.consumers
	k.consumers = make(map[string]*kafkaConsumer)
	k.mu.Unlock()

	for _, c := range consumers {
		c.stop()
	}

	k.producer.Flush(5000)
	k.producer.Close()
	<-k.doneCh
	return nil
}
