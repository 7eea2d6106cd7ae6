package kafka

import (
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"featurebench/internal/example"
)

func TestDriver_PushSendsSerializedExample(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	d := &driver{cfg: Config{Topic: "bench", KeyFeature: "user_id"}, p: sp}

	rec := example.New(map[string]example.Feature{
		"user_id": example.Int64Feature(42),
		"score":   example.FloatFeature(0.5),
	})
	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "bench" {
			t.Errorf("topic = %q", msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "42" {
			t.Errorf("key = %q, want 42", key)
		}
		val, _ := msg.Value.Encode()
		got, err := example.Unmarshal(val)
		if err != nil {
			return err
		}
		if !got.Equal(rec) {
			t.Errorf("payload mismatch: %v", got.Names())
		}
		return nil
	})

	if err := d.Push(rec); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDriver_PushPropagatesDeliveryFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	d := &driver{cfg: Config{Topic: "bench"}, p: sp}

	boom := errors.New("broker down")
	sp.ExpectSendMessageAndFail(boom)

	err := d.Push(example.New(nil))
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped broker error, got %v", err)
	}
	_ = d.Close()
}

func TestDriver_ConfigureRequiresTopic(t *testing.T) {
	d := &driver{}
	if err := d.Configure(Config{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Fatal("expected error for missing topic")
	}
	if err := d.Configure("nope"); err == nil {
		t.Fatal("expected error for wrong config type")
	}
}

func TestMessageKey(t *testing.T) {
	rec := example.New(map[string]example.Feature{
		"s": example.StringFeature("abc"),
		"f": example.FloatFeature(1.5),
		"e": example.Int64Feature(),
	})
	for name, want := range map[string]string{"s": "abc", "f": "1.5"} {
		got, ok := messageKey(rec, name)
		if !ok || string(got) != want {
			t.Errorf("messageKey(%q) = %q, %v", name, got, ok)
		}
	}
	if _, ok := messageKey(rec, "e"); ok {
		t.Error("empty feature must not yield a key")
	}
	if _, ok := messageKey(rec, ""); ok {
		t.Error("no key feature configured must not yield a key")
	}
}
