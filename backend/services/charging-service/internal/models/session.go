package models

import (
	"math"
	"time"
)

// SessionStatus describes the metering state of a ChargingSession.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionHalted    SessionStatus = "halted"
)

// ChargingSession is the meter of one charging run.
type ChargingSession struct {
	EnergyKWh float64       `json:"energyKwh"`
	Cost      float64       `json:"cost"`
	StartedAt time.Time     `json:"startedAt"`
	Status    SessionStatus `json:"status"`
}

// Receipt confirms a stopped session on the backend.
type Receipt struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	StoppedAt time.Time `json:"stoppedAt"`
}

// Outcome values stored with a SessionRecord.
const (
	OutcomeCompleted           = "completed"
	OutcomeInsufficientBalance = "insufficient_balance"
	OutcomeStopFailed          = "stop_failed"
	OutcomeCancelled           = "cancelled"
)

// SessionRecord is a finished session kept in the charging history.
type SessionRecord struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"userId"`
	StationID    string    `json:"stationId"`
	StationName  string    `json:"stationName"`
	ConnectorID  string    `json:"connectorId"`
	EnergyKWh    float64   `json:"energyKwh"`
	Cost         float64   `json:"cost"`
	PricePerKWh  float64   `json:"pricePerKwh"`
	Currency     string    `json:"currency"`
	BalanceAfter float64   `json:"balanceAfter"`
	Outcome      string    `json:"outcome"`
	ReceiptID    string    `json:"receiptId,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
}

// Round2 rounds v to two decimal places. Energy and money are rounded at every
// observation so repeated reads agree.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
