// Package events implements Server-Sent Events for live question feed
// updates and event broadcasting.
package events

import (
	"time"

	"github.com/devflowapp/devflow-server/internal/domain"
)

// DevFlow uses SSE for server-to-client communication only; everything
// else follows a request/response pattern.

// EventType represents the type of SSE event.
type EventType string

const (
	// EventQuestionCreated represents a question creation event.
	EventQuestionCreated EventType = "question.created"
	// EventQuestionUpdated represents a question edit event.
	EventQuestionUpdated EventType = "question.updated"
	// EventQuestionDeleted represents a question deletion event.
	EventQuestionDeleted EventType = "question.deleted"

	// EventAnswerCreated represents a new answer on a question.
	EventAnswerCreated EventType = "answer.created"
	// EventAnswerDeleted represents an answer deletion event.
	EventAnswerDeleted EventType = "answer.deleted"

	// EventTagCreated represents the first use of a new tag.
	EventTagCreated EventType = "tag.created"

	// EventUserRegistered represents a new user account.
	// Only sent to admin users.
	EventUserRegistered EventType = "user.registered"

	// EventBackupCompleted represents a finished backup run.
	// Only sent to admin users.
	EventBackupCompleted EventType = "backup.completed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct
// deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"` // Event-specific data as JSON object
	Type      EventType `json:"type"`

	// When set, the event is only delivered to clients of this user.
	// Empty string means broadcast to all.
	UserID string `json:"-"`
}

// QuestionEventData is the data payload for question create/update events.
// Tag names are included so clients can render the card without a second
// fetch.
type QuestionEventData struct {
	Question *domain.Question `json:"question"`
	Tags     []string         `json:"tags,omitempty"`
}

// QuestionDeletedEventData is the data payload for question delete events.
type QuestionDeletedEventData struct {
	DeletedAt  time.Time `json:"deleted_at"`
	QuestionID string    `json:"question_id"`
}

// AnswerEventData is the data payload for answer creation events.
type AnswerEventData struct {
	Answer *domain.Answer `json:"answer"`
}

// AnswerDeletedEventData is the data payload for answer delete events.
type AnswerDeletedEventData struct {
	AnswerID   string `json:"answer_id"`
	QuestionID string `json:"question_id"`
}

// TagEventData is the data payload for tag events.
type TagEventData struct {
	Tag *domain.Tag `json:"tag"`
}

// UserRegisteredEventData is the data payload for user registration events.
type UserRegisteredEventData struct {
	User *domain.User `json:"user"`
}

// BackupCompletedEventData is the data payload for backup completion events.
type BackupCompletedEventData struct {
	CompletedAt time.Time `json:"completed_at"`
	BackupID    string    `json:"backup_id"`
	SizeBytes   int64     `json:"size_bytes"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewQuestionCreatedEvent creates a question.created event.
func NewQuestionCreatedEvent(q *domain.Question, tagNames []string) Event {
	return Event{
		Type:      EventQuestionCreated,
		Data:      QuestionEventData{Question: q, Tags: tagNames},
		Timestamp: time.Now(),
	}
}

// NewQuestionUpdatedEvent creates a question.updated event.
func NewQuestionUpdatedEvent(q *domain.Question, tagNames []string) Event {
	return Event{
		Type:      EventQuestionUpdated,
		Data:      QuestionEventData{Question: q, Tags: tagNames},
		Timestamp: time.Now(),
	}
}

// NewQuestionDeletedEvent creates a question.deleted event.
func NewQuestionDeletedEvent(questionID string, deletedAt time.Time) Event {
	return Event{
		Type: EventQuestionDeleted,
		Data: QuestionDeletedEventData{
			QuestionID: questionID,
			DeletedAt:  deletedAt,
		},
		Timestamp: time.Now(),
	}
}

// NewAnswerCreatedEvent creates an answer.created event.
func NewAnswerCreatedEvent(a *domain.Answer) Event {
	return Event{
		Type:      EventAnswerCreated,
		Data:      AnswerEventData{Answer: a},
		Timestamp: time.Now(),
	}
}

// NewAnswerDeletedEvent creates an answer.deleted event.
func NewAnswerDeletedEvent(answerID, questionID string) Event {
	return Event{
		Type: EventAnswerDeleted,
		Data: AnswerDeletedEventData{
			AnswerID:   answerID,
			QuestionID: questionID,
		},
		Timestamp: time.Now(),
	}
}

// NewTagCreatedEvent creates a tag.created event.
func NewTagCreatedEvent(t *domain.Tag) Event {
	return Event{
		Type:      EventTagCreated,
		Data:      TagEventData{Tag: t},
		Timestamp: time.Now(),
	}
}

// NewUserRegisteredEvent creates a user.registered event for admin users.
// The password hash is cleared before the user leaves the process.
func NewUserRegisteredEvent(user *domain.User) Event {
	sanitized := *user
	sanitized.PasswordHash = ""
	return Event{
		Type:      EventUserRegistered,
		Data:      UserRegisteredEventData{User: &sanitized},
		Timestamp: time.Now(),
	}
}

// NewBackupCompletedEvent creates a backup.completed event for admin users.
func NewBackupCompletedEvent(backupID string, sizeBytes int64) Event {
	return Event{
		Type: EventBackupCompleted,
		Data: BackupCompletedEventData{
			BackupID:    backupID,
			SizeBytes:   sizeBytes,
			CompletedAt: time.Now(),
		},
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}
