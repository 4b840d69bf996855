package usecases

import (
	"veritime/internal/domain/device"
	"veritime/internal/domain/shared/events"
	"veritime/internal/shared/logger"
)

// publishDeviceEvents drains the aggregate's recorded events into the
// dispatcher. Delivery failures only lose notifications, never the write
// that produced them.
func publishDeviceEvents(dispatcher events.EventPublisher, log logger.Interface, dev *device.Device) {
	if dispatcher == nil {
		return
	}

	for _, event := range dev.GetEvents() {
		domainEvent, ok := event.(events.DomainEvent)
		if !ok {
			continue
		}
		publishEvent(dispatcher, log, domainEvent)
	}
}

func publishEvent(dispatcher events.EventPublisher, log logger.Interface, event events.DomainEvent) {
	if dispatcher == nil {
		return
	}

	if err := dispatcher.Publish(event); err != nil {
		log.Warnw("failed to dispatch event",
			"event_type", event.GetEventType(),
			"aggregate_id", event.GetAggregateID(),
			"error", err,
		)
	}
}
