package rabbitmq

// prefetch число неподтвержденных сообщений на канал, совпадает с размером пула обработчиков
const prefetch = 10

// Имена обменников и ключей маршрутизации фоновых задач интервью
const (
	FulfillmentExchange   = "fulfillment"
	FulfillmentDeadLetter = "fulfillment.dlx"
	FeedbackRoutingKey    = "feedback"
	ReportRoutingKey      = "report"
)

// QueueConfig описание очереди и ее привязки к обменнику
type QueueConfig struct {
	QueueName          string
	RoutingKey         string
	DeadLetterExchange string
}

// GetFulfillmentQueues очереди задач после завершения интервью.
// Упавшие задачи уходят в очередь отказов, автоматического повтора нет.
func GetFulfillmentQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "fulfillment.feedback", RoutingKey: FeedbackRoutingKey, DeadLetterExchange: FulfillmentDeadLetter},
		{QueueName: "fulfillment.report", RoutingKey: ReportRoutingKey, DeadLetterExchange: FulfillmentDeadLetter},
	}
}
