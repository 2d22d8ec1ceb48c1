package tasks

import (
	"github.com/ThreeDotsLabs/watermill/message"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// NewRedisPublisher builds a Redis-streams publisher for the queue.
func NewRedisPublisher(addr string) (message.Publisher, error) {
	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     redis.NewClient(&redis.Options{Addr: addr}),
		Marshaller: rstream.DefaultMarshallerUnmarshaller{},
	}, newWatermillLogger())
	if err != nil {
		return nil, errors.Wrap(err, "build redis publisher")
	}
	return pub, nil
}

// NewRedisSubscriber builds a Redis-streams subscriber bound to the shared
// worker consumer group, so concurrent workers split the stream.
func NewRedisSubscriber(addr, consumer string) (message.Subscriber, error) {
	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        redis.NewClient(&redis.Options{Addr: addr}),
		Unmarshaller:  rstream.DefaultMarshallerUnmarshaller{},
		ConsumerGroup: ConsumerGroup,
		Consumer:      consumer,
	}, newWatermillLogger())
	if err != nil {
		return nil, errors.Wrap(err, "build redis subscriber")
	}
	return sub, nil
}
