package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Publisher delivers aggregated alert batches to an operator-visible channel
// (typically a broker topic consumed by the monitoring stack).
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval (e.g., 30s)
	CountThreshold int           // max unique alerts before flush (e.g., 100)
	Topic          string        // topic to send aggregated alerts
	Publisher      Publisher
}

// AggregatedAlert is one deduplicated operator alert with occurrence counts.
// Repeated failures of the same cycle collapse into a single entry so a
// retry storm does not flood the channel.
type AggregatedAlert struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

type AlertCollector struct {
	config   *CollectionConfig
	alertMap map[string]*AggregatedAlert
	mutex    sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewAlertCollector(config *CollectionConfig) *AlertCollector {
	ctx, cancel := context.WithCancel(context.Background())

	collector := &AlertCollector{
		config:   config,
		alertMap: make(map[string]*AggregatedAlert),
		ctx:      ctx,
		cancel:   cancel,
	}

	collector.wg.Add(1)
	go collector.periodicFlush()

	return collector
}

func (d *AlertCollector) AddAlert(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := d.generateKey(level, message, fields, caller)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if entry, exists := d.alertMap[key]; exists {
		entry.Count++
		entry.LastSeen = now
	} else {
		d.alertMap[key] = &AggregatedAlert{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(d.alertMap) >= d.config.CountThreshold {
		d.flushAlerts()
	}
}

func (d *AlertCollector) generateKey(level, message string, fields map[string]interface{}, caller string) string {
	// Consistent hash from level + message + fields + caller
	data := struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{
		Level:   level,
		Message: message,
		Fields:  fields,
		Caller:  caller,
	}

	jsonData, _ := json.Marshal(data)
	hash := sha256.Sum256(jsonData)
	return fmt.Sprintf("%x", hash)
}

func (d *AlertCollector) periodicFlush() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.mutex.Lock()
			if len(d.alertMap) > 0 {
				d.flushAlerts()
			}
			d.mutex.Unlock()
		case <-d.ctx.Done():
			// Final flush before shutdown
			d.mutex.Lock()
			if len(d.alertMap) > 0 {
				d.flushAlerts()
			}
			d.mutex.Unlock()
			return
		}
	}
}

func (d *AlertCollector) flushAlerts() {
	if len(d.alertMap) == 0 {
		return
	}

	alerts := make([]AggregatedAlert, 0, len(d.alertMap))
	for _, entry := range d.alertMap {
		alerts = append(alerts, *entry)
	}

	d.alertMap = make(map[string]*AggregatedAlert)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := d.config.Publisher.PublishMessage(ctx, d.config.Topic, alerts); err != nil {
			fmt.Printf("failed to send aggregated alerts: %v\n", err)
		}
	}()
}

func (d *AlertCollector) Close() {
	d.cancel()
	d.wg.Wait()
}
