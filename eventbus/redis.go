package eventbus

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/swdee/go-facewatch/anomaly"
	"github.com/swdee/go-facewatch/monitor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultChannel is the pub/sub channel frame events are published on
const DefaultChannel = "facewatch:events"

// publishTimeout bounds each publish so a slow broker does not stall the
// monitor loop
const publishTimeout = 2 * time.Second

// Event is the message published for each processed frame
type Event struct {
	SessionID string          `json:"sessionId"`
	Seq       uint64          `json:"seq"`
	Time      time.Time       `json:"time"`
	Labels    []anomaly.Label `json:"labels,omitempty"`
	Anomaly   bool            `json:"anomaly"`
	Error     string          `json:"error,omitempty"`
}

// publisher is the subset of the redis client used
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// Options configure the connection to redis
type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RedisPublisher is a monitor sink publishing the labels of each frame to a
// redis channel so other services can react to anomalies
type RedisPublisher struct {
	client    publisher
	channel   string
	sessionID string
	log       logrus.FieldLogger
}

// NewRedisPublisher connects to redis and returns a publisher.  A failed ping
// is logged but not fatal as the broker may come up later
func NewRedisPublisher(opts Options, sessionID string, log logrus.FieldLogger) *RedisPublisher {

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entry := log.WithField("addr", opts.Addr)

	if err := client.Ping(ctx).Err(); err != nil {
		entry.WithError(err).Warn("Failed to connect to Redis")
	} else {
		entry.Info("Connected to Redis")
	}

	return newRedisPublisher(client, opts.Channel, sessionID, log)
}

func newRedisPublisher(client publisher, channel, sessionID string,
	log logrus.FieldLogger) *RedisPublisher {

	if channel == "" {
		channel = DefaultChannel
	}

	return &RedisPublisher{
		client:    client,
		channel:   channel,
		sessionID: sessionID,
		log:       log,
	}
}

// Publish sends the frame's event to the channel
func (p *RedisPublisher) Publish(res *monitor.FrameResult) {

	data, err := json.Marshal(p.event(res))

	if err != nil {
		p.log.WithError(err).Error("Error encoding frame event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.log.WithError(fmt.Errorf("error publishing to %s: %w", p.channel, err)).
			WithField("seq", res.Seq).Warn("Frame event not published")
	}
}

// event converts a frame result into the published message
func (p *RedisPublisher) event(res *monitor.FrameResult) Event {

	ev := Event{
		SessionID: p.sessionID,
		Seq:       res.Seq,
		Time:      res.Captured,
	}

	if res.Err != nil {
		ev.Error = res.Err.Error()
		return ev
	}

	ev.Labels = anomaly.Labels(res.Frame.Events)

	for _, l := range ev.Labels {
		if l.Anomaly() {
			ev.Anomaly = true
		}
	}

	if len(res.Frame.Events) > 0 {
		ev.Time = res.Frame.Events[0].Time
	}

	return ev
}

// Close the redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
