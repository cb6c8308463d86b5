package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaProducer_SendMessage(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w)

	err := p.SendMessage(context.Background(), "topic-a", "key-1", map[string]int{"paths": 20})
	require.NoError(t, err)

	require.Len(t, w.messages, 1)
	assert.Equal(t, "topic-a", w.messages[0].Topic)
	assert.Equal(t, []byte("key-1"), w.messages[0].Key)
	assert.JSONEq(t, `{"paths":20}`, string(w.messages[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaProducer_SendMessageErrors(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w)

	assert.Error(t, p.SendMessage(context.Background(), "t", "k", "v"))
	assert.Error(t, p.SendMessage(context.Background(), "t", "k", make(chan int)))
}
