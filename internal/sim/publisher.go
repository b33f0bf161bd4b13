package sim

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// PublisherMetrics is the instrumentation a publisher reports into.
type PublisherMetrics interface {
	PublishedInc()
	PublishErrInc()
}

// Publisher streams bus positions onto NATS subjects.
type Publisher struct {
	nc      *nats.Conn
	metrics PublisherMetrics
}

// NewPublisher connects to the NATS server.
func NewPublisher(url string, m PublisherMetrics) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("bus-simulator"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc, metrics: m}, nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// PositionMessage is the wire format of one published bus position.
type PositionMessage struct {
	Bus
	Timestamp time.Time `json:"timestamp"`
}

// PublishBus publishes one bus position.
func (p *Publisher) PublishBus(b Bus, at time.Time) error {
	data, err := json.Marshal(PositionMessage{Bus: b, Timestamp: at})
	if err != nil {
		return err
	}
	err = p.nc.Publish(SubjectFor(b), data)
	if p.metrics != nil {
		if err != nil {
			p.metrics.PublishErrInc()
		} else {
			p.metrics.PublishedInc()
		}
	}
	return err
}
