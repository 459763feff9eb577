package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeCycle      EventType = "cycle"
	EventTypeReplan     EventType = "replan"
	EventTypeSession    EventType = "session"
	EventTypeEscalation EventType = "escalation"
	EventTypeRun        EventType = "run"
	EventTypeHeartbeat  EventType = "heartbeat"
	EventTypeAgent      EventType = "agent"
)

// Event represents a structured log entry.
type Event struct {
	Type       EventType `json:"type"`
	InstanceID string    `json:"instance_id,omitempty"`
	PlanID     string    `json:"plan_id,omitempty"`
	Data       any       `json:"data"`
	Timestamp  time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	agentLogPath string
	maxSize      int64
}

func NewLogger() *Logger {
	return &Logger{
		agentLogPath: filepath.Join("logs", "agent.jsonl"),
		maxSize:      10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeAgent {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.agentLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.agentLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.agentLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.agentLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.agentLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogCycle(instanceID, planID string, cycle int, kind, raw string) {
	l.Log(Event{
		Type:       EventTypeCycle,
		InstanceID: instanceID,
		PlanID:     planID,
		Data: map[string]any{
			"cycle":       cycle,
			"kind":        kind,
			"raw_message": raw,
		},
	})
}

func (l *Logger) LogReplan(instanceID, previousPlanID, newPlanID string, err error) {
	data := map[string]any{"previous_plan_id": previousPlanID}
	if newPlanID != "" {
		data["new_plan_id"] = newPlanID
	}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{
		Type:       EventTypeReplan,
		InstanceID: instanceID,
		PlanID:     previousPlanID,
		Data:       data,
	})
}

func (l *Logger) LogSession(instanceID, platform, domain string, err error) {
	data := map[string]any{
		"platform": platform,
		"domain":   domain,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{
		Type:       EventTypeSession,
		InstanceID: instanceID,
		Data:       data,
	})
}

func (l *Logger) LogEscalation(instanceID, reason string, err error) {
	data := map[string]any{"reason": reason}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{
		Type:       EventTypeEscalation,
		InstanceID: instanceID,
		Data:       data,
	})
}

func (l *Logger) LogRun(instanceID, planID string, success bool, cycles int, errMsg string) {
	data := map[string]any{
		"success": success,
		"cycles":  cycles,
	}
	if errMsg != "" {
		data["error"] = errMsg
	}
	l.Log(Event{
		Type:       EventTypeRun,
		InstanceID: instanceID,
		PlanID:     planID,
		Data:       data,
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

// LogAgent mirrors one raw agent exchange to logs/agent.jsonl.
func (l *Logger) LogAgent(instanceID, planID string, request any, rawMessage string) {
	l.Log(Event{
		Type:       EventTypeAgent,
		InstanceID: instanceID,
		PlanID:     planID,
		Data: map[string]any{
			"request":     request,
			"raw_message": rawMessage,
		},
	})
}
