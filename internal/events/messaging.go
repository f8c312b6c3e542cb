package events

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange           = "ecommerce.events"
	CartCheckedOutRoutingKey = "cart.checkedout.v1"
	shopServiceName          = "shop-api"
)

func serviceQueue(serviceName, routingKey string) string {
	return serviceName + "." + routingKey
}

// CartCheckedOutQueue is the queue name a consumer of this service binds to
// receive checkout events.
func CartCheckedOutQueue() string {
	return serviceQueue(shopServiceName, CartCheckedOutRoutingKey)
}

type exchangeDeclarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
}

func declareEventsExchange(ch exchangeDeclarer) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

// Dial connects to RabbitMQ with a bounded dial timeout.
func Dial(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(10 * time.Second),
	})
}
