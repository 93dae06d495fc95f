// Package notifications provides real-time event delivery over Redis
// pub/sub and WebSocket connections.
package notifications

// Event types pushed to connected clients.
const (
	EventMessageNew     = "message_new"
	EventMessageDeleted = "message_deleted"
	EventPollVote       = "poll_vote"
	EventPollClosed     = "poll_closed"
	EventRoomUpdated    = "room_updated"
	EventRoomNotice     = "room_notice"
	EventReportNew      = "report_new"
	EventUserStatus     = "user_status"
)

// Event is the wire envelope for everything pushed to clients.
type Event struct {
	Type    string      `json:"type"`
	RoomID  uint        `json:"room_id,omitempty"`
	UserID  uint        `json:"user_id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}
