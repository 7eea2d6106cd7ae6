package kafka

import (
	"fmt"
	"strconv"

	"github.com/IBM/sarama"

	"featurebench/internal/example"
	"featurebench/sink"
)

type Config struct {
	Brokers    []string `koanf:"brokers"`
	Topic      string   `koanf:"topic"`
	Acks       int16    `koanf:"required_acks"` // 0,1,-1
	KeyFeature string   `koanf:"key_feature"`   // optional message key source
	Version    string   `koanf:"version"`       // e.g. "3.6.0"; sarama default if empty
}

// driver mirrors each record to a topic as a serialized tf.Example. It uses a
// sync producer so a delivery failure aborts the run like any other sink error.
type driver struct {
	cfg Config
	p   sarama.SyncProducer
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return fmt.Errorf("kafka-sink: brokers and topic are required")
	}
	d.cfg = cfg

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Successes = true
	if cfg.Version != "" {
		ver, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return fmt.Errorf("kafka-sink: %w", err)
		}
		sc.Version = ver
	}
	var err error
	d.p, err = sarama.NewSyncProducer(cfg.Brokers, sc)
	return err
}

func (d *driver) Push(e example.Example) error {
	if d.p == nil {
		return fmt.Errorf("kafka-sink: not configured or closed")
	}
	msg :=&sarama.ProducerMessage{
		Topic: d.cfg.Topic,
		Value: sarama.ByteEncoder(example.Marshal(e)),
	}
	if key, ok := messageKey(e, d.cfg.KeyFeature); ok {
		msg.Key = sarama.ByteEncoder(key)
	}
	if _, _, err := d.p.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka-sink: %s: %w", d.cfg.Topic, err)
	}
	return nil
}

func (d *driver) Close() error {
	if d.p == nil {
		return nil
	}
	err := d.p.Close()
	d.p = nil
	return err
}

// messageKey renders the first value of the named feature.
func messageKey(e example.Example, name string) ([]byte, bool) {
	if name == "" {
		return nil, false
	}
	f, ok := e.Get(name)
	if !ok || f.Len() == 0 {
		return nil, false
	}
	switch f.Kind() {
	case example.KindBytes:
		return f.Bytes()[0], true
	case example.KindFloat:
		return strconv.AppendFloat(nil, float64(f.Floats()[0]), 'g', -1, 32), true
	case example.KindInt64:
		return strconv.AppendInt(nil, f.Int64s()[0], 10), true
	}
	return nil, false
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
