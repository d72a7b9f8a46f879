package messaging

import (
	"slices"

	"github.com/segmentio/kafka-go"
)

// MessageCarrier exposes Kafka headers as an otel TextMapCarrier.
type MessageCarrier struct {
	msg *kafka.Message
}

func NewMessageCarrier(msg *kafka.Message) *MessageCarrier {
	return &MessageCarrier{msg: msg}
}

func (c *MessageCarrier) Get(key string) string {
	i := slices.IndexFunc(c.msg.Headers, func(h kafka.Header) bool { return h.Key == key })
	if i < 0 {
		return ""
	}
	return string(c.msg.Headers[i].Value)
}

func (c *MessageCarrier) Set(key, value string) {
	i := slices.IndexFunc(c.msg.Headers, func(h kafka.Header) bool { return h.Key == key })
	if i >= 0 {
		c.msg.Headers[i].Value = []byte(value)
		return
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *MessageCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
