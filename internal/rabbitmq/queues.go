package rabbitmq

// Ключи маршрутизации почтовых событий.
const (
	RoutingPremiumActivated = "premium_activated"
	RoutingPremiumExpiring  = "premium_expiring"
)

// QueueConfig очередь и ключ, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues очереди, которые читает sender.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.premium_activated", RoutingKey: RoutingPremiumActivated},
		{QueueName: "notifications.premium_expiring", RoutingKey: RoutingPremiumExpiring},
	}
}
