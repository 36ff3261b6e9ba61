package metrics

import (
	"sync"
	"time"

	"netgdp/logger"
)

// Metric is one metric event: a component value, a warmer tick or an
// upstream quota reading.
type Metric struct {
	Timestamp time.Time     `json:"timestamp"`
	Component string        `json:"component"`
	Name      string        `json:"name"`
	Value     interface{}   `json:"value"`
	Type      string        `json:"type"`
	Fields    logger.Fields `json:"fields,omitempty"`
}

type MetricHandler func(Metric)

// MetricHandlerID identifies a subscription. Zero is never issued.
type MetricHandlerID uint64

type subscription struct {
	id MetricHandlerID
	fn MetricHandler
}

// eventBus fans metric events out to subscribers in registration order.
type eventBus struct {
	mu   sync.RWMutex
	subs []subscription
	seq  MetricHandlerID
}

var bus = &eventBus{}

func (b *eventBus) subscribe(fn MetricHandler) MetricHandlerID {
	if fn == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	b.subs = append(b.subs, subscription{id: b.seq, fn: fn})
	return b.seq
}

func (b *eventBus) unsubscribe(id MetricHandlerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// publish calls subscribers outside the lock so a handler may unsubscribe.
func (b *eventBus) publish(m Metric) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, s := range subs {
		s.fn(m)
	}
}

// RegisterMetricHandler subscribes fn to every emitted metric. A nil fn is
// ignored and yields the zero id.
func RegisterMetricHandler(fn MetricHandler) MetricHandlerID {
	return bus.subscribe(fn)
}

func UnregisterMetricHandler(id MetricHandlerID) {
	if id != 0 {
		bus.unsubscribe(id)
	}
}

// recordMetric logs the event at debug level and publishes it. Events
// without a name are dropped; an empty type means counter.
func recordMetric(log *logger.Log, component, name string, value interface{}, metricType string, fields logger.Fields) (Metric, bool) {
	if name == "" {
		return Metric{}, false
	}
	if metricType == "" {
		metricType = "counter"
	}
	if log == nil {
		log = logger.GetLogger()
	}

	m := Metric{
		Timestamp: timeNow(),
		Component: component,
		Name:      name,
		Value:     value,
		Type:      metricType,
		Fields:    make(logger.Fields, len(fields)),
	}
	for k, v := range fields {
		m.Fields[k] = v
	}

	log.WithComponent(component).WithFields(m.Fields).WithFields(logger.Fields{
		"metric":      name,
		"metric_type": metricType,
		"value":       value,
	}).Debug("metric")

	bus.publish(m)
	return m, true
}
