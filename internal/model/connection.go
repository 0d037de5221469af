package model

// ConnectionPhase is the lifecycle phase of the push channel connection.
type ConnectionPhase string

const (
	ConnectionPhaseDisconnected ConnectionPhase = "disconnected"
	ConnectionPhaseConnecting   ConnectionPhase = "connecting"
	ConnectionPhaseConnected    ConnectionPhase = "connected"
)
