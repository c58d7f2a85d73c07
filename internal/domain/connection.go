package domain

import "time"

// ConnectionState represents the lifecycle state of a streaming connection.
type ConnectionState string

const (
	StateDisconnected     ConnectionState = "disconnected"
	StateConnecting       ConnectionState = "connecting"
	StateConnected        ConnectionState = "connected"
	StateReconnecting     ConnectionState = "reconnecting"
	StateTerminallyFailed ConnectionState = "terminally_failed"
)

// ConnectionStatus is a point-in-time view of a streaming connection.
type ConnectionStatus struct {
	Exchange        string          `json:"exchange"`
	State           ConnectionState `json:"state"`
	ReconnectCount  int             `json:"reconnect_count"`
	LastMessageTime time.Time       `json:"last_message_time"`
	LastError       string          `json:"last_error,omitempty"`
}

// Connected reports whether the connection is currently usable.
func (s ConnectionStatus) Connected() bool {
	return s.State == StateConnected
}
