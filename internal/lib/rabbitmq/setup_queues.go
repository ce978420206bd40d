// Package rabbitmq содержит обвязку над RabbitMQ: подключение, объявление
// очередей, публикацию и потребление JSON-сообщений.
package rabbitmq

// NotificationsExchange — exchange, через который планировщик оповещает бота.
const NotificationsExchange = "notifications"

// ChargedRoutingKey — ключ маршрутизации событий о списании подписки.
const ChargedRoutingKey = "charged"

// QueueConfig описывает очередь и ключ, которым она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди, которые нужны потребителям уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.charged", RoutingKey: ChargedRoutingKey},
	}
}
