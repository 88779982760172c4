package databus

import (
	"strings"

	"gopkg.in/Shopify/sarama.v1"
	"moff.io/walletauth/pkg/errors"
	"moff.io/walletauth/pkg/log"
)

// Event is a message published on the bus.
type Event interface {
	Serialize() []byte
	Topic() string
}

// Publisher delivers events, the sign-in audit trail is written through it.
type Publisher interface {
	Publish(e Event) error
}

type DataBus struct {
	producer sarama.SyncProducer
}

// NewDataBus connects a synchronous producer to the comma separated broker list.
func NewDataBus(hosts string) (*DataBus, error) {
	conf := sarama.NewConfig()
	conf.Producer.Return.Successes = true
	conf.Producer.RequiredAcks = sarama.WaitForLocal
	p, err := sarama.NewSyncProducer(splitHosts(hosts), conf)
	if err != nil {
		return nil, errors.WrapAndReport(err, "create kafka producer")
	}
	log.Info("Kafka producer initialized...")
	return &DataBus{producer: p}, nil
}

// NewDataBusWithProducer wraps an existing producer, tests pass a sarama mock.
func NewDataBusWithProducer(p sarama.SyncProducer) *DataBus {
	return &DataBus{producer: p}
}

func splitHosts(host string) []string {
	var hosts []string
	for _, h := range strings.Split(host, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func (db *DataBus) PublishRaw(topic string, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	partition, offset, err := db.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(raw)})
	if err != nil {
		return errors.WrapAndReport(err, "produce message")
	}
	log.Debugf("produce message success-partition: %d, offset: %d", partition, offset)
	return nil
}

func (db *DataBus) Publish(e Event) error {
	return db.PublishRaw(e.Topic(), e.Serialize())
}

func (db *DataBus) Close() error {
	return db.producer.Close()
}

// LogPublisher writes events to the log instead of a broker.
type LogPublisher struct{}

func (LogPublisher) Publish(e Event) error {
	log.Infof("databus - topic: %s message: %s", e.Topic(), string(e.Serialize()))
	return nil
}
