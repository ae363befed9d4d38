package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a notification emitted around solves.
type Event struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	RunID     string                 `json:"run_id,omitempty"`
	Method    string                 `json:"method,omitempty"`
	Function  string                 `json:"function,omitempty"`
	Message   string                 `json:"message"`
	Level     string                 `json:"level"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Event types.
const (
	EventTypeSolveCompleted   = "solve.completed"
	EventTypeSolveFailed      = "solve.failed"
	EventTypeSolveRejected    = "solve.rejected"
	EventTypeCompareCompleted = "compare.completed"
	EventTypePolicyViolation  = "policy.violation"
	EventTypeHistoryRecorded  = "history.recorded"
	EventTypePolicyReloaded   = "policy.reloaded"
)

// Event levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// ErrPublisherStopped is returned by Publish after Shutdown.
var ErrPublisherStopped = errors.New("event publisher stopped")

// ErrBufferFull is returned when the async buffer cannot take another event.
var ErrBufferFull = errors.New("event buffer full, event dropped")

// EventSubscriber handles a delivered event. Subscribers run on the
// delivering goroutine and must not block.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher fans events out to subscribers.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	ep := &EventPublisher{
		config: cfg,
		buffer: make(chan Event, cfg.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish stamps the event and hands it to subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}
	if ep.ctx.Err() != nil {
		return ErrPublisherStopped
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if !ep.config.EnableAsync {
		ep.deliverEvent(event)
		return nil
	}

	select {
	case ep.buffer <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// PublishSolve publishes the outcome of one solve.
func (ep *EventPublisher) PublishSolve(runID, method, function string, success bool, iterations int, reason string) error {
	ev := Event{
		Source:   "engine",
		RunID:    runID,
		Method:   method,
		Function: function,
		Data:     map[string]interface{}{"iterations": iterations},
	}
	if success {
		ev.Type = EventTypeSolveCompleted
		ev.Level = EventLevelInfo
		ev.Message = fmt.Sprintf("%s on %s converged in %d iterations", method, function, iterations)
	} else {
		ev.Type = EventTypeSolveFailed
		ev.Level = EventLevelWarning
		ev.Message = fmt.Sprintf("%s on %s failed: %s", method, function, reason)
		ev.Data["reason"] = reason
	}
	return ep.Publish(ev)
}

// PublishRejected publishes a request refused by validation or policy.
func (ep *EventPublisher) PublishRejected(method, function, class, reason string) error {
	return ep.Publish(Event{
		Type:     EventTypeSolveRejected,
		Source:   "engine",
		Method:   method,
		Function: function,
		Message:  fmt.Sprintf("request rejected (%s): %s", class, reason),
		Level:    EventLevelError,
		Data:     map[string]interface{}{"class": class},
	})
}

// PublishCompare publishes the summary of a compare-all request.
func (ep *EventPublisher) PublishCompare(function string, succeeded, total int) error {
	return ep.Publish(Event{
		Type:     EventTypeCompareCompleted,
		Source:   "engine",
		Function: function,
		Message:  fmt.Sprintf("compare on %s: %d of %d methods succeeded", function, succeeded, total),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"succeeded": succeeded,
			"total":     total,
		},
	})
}

// PublishPolicyViolation publishes one admission policy violation.
func (ep *EventPublisher) PublishPolicyViolation(policyName, severity, message string) error {
	level := EventLevelError
	if severity != "error" {
		level = EventLevelWarning
	}
	return ep.Publish(Event{
		Type:    EventTypePolicyViolation,
		Source:  "policy",
		Message: fmt.Sprintf("%s: %s", policyName, message),
		Level:   level,
		Data: map[string]interface{}{
			"policy":   policyName,
			"severity": severity,
		},
	})
}

// PublishPolicyReloaded publishes a successful policy directory reload.
func (ep *EventPublisher) PublishPolicyReloaded(dir string, count int) error {
	return ep.Publish(Event{
		Type:    EventTypePolicyReloaded,
		Source:  "policy",
		Message: fmt.Sprintf("reloaded %d policies from %s", count, dir),
		Level:   EventLevelInfo,
		Data:    map[string]interface{}{"count": count},
	})
}

// PublishHistoryRecorded publishes a persisted run.
func (ep *EventPublisher) PublishHistoryRecorded(runID, method, function string) error {
	return ep.Publish(Event{
		Type:     EventTypeHistoryRecorded,
		Source:   "stores",
		RunID:    runID,
		Method:   method,
		Function: function,
		Message:  fmt.Sprintf("run %s recorded", runID),
		Level:    EventLevelInfo,
	})
}

// Subscribe adds a subscriber. A nil filter receives every event.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)
	flush := func() {
		for _, event := range batch {
			ep.deliverEvent(event)
		}
		batch = batch[:0]
	}

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)
			// Deliver as soon as the buffer is momentarily empty so that
			// subscribers never wait on a partially filled batch.
			if len(batch) >= ep.config.MaxBatchSize || len(ep.buffer) == 0 {
				flush()
			}

		case <-ep.ctx.Done():
			for {
				select {
				case event := <-ep.buffer:
					batch = append(batch, event)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown stops the publisher after delivering everything buffered.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// FilterByLevel allows events at minLevel or above.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}
	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType allows events of the given types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByMethod allows events for one solver method.
func FilterByMethod(method string) EventFilter {
	return func(event Event) bool {
		return event.Method == method
	}
}
