package domain

import (
	"context"
	"time"
)

const (
	// ScenarioGeneratedEventType 场景生成事件主题
	ScenarioGeneratedEventType = "shortrate.scenario.generated"
)

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}

// ScenarioGeneratedEvent carries the inputs and shape of a run, never the
// paths themselves; the seed is enough to replay it.
type ScenarioGeneratedEvent struct {
	Model      string     `json:"model"`
	Dt         float64    `json:"dt"`
	A          float64    `json:"a"`
	B          float64    `json:"b"`
	Sigma      float64    `json:"sigma"`
	R0         float64    `json:"r0"`
	Horizon    float64    `json:"horizon"`
	Steps      int        `json:"steps"`
	Paths      int        `json:"paths"`
	Seed       int64      `json:"seed"`
	Seeded     bool       `json:"seeded"`
	Advisories []Advisory `json:"advisories,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}
