package models

// ChargeMode is the current type delivered by a connector.
type ChargeMode string

const (
	ChargeModeAC ChargeMode = "AC"
	ChargeModeDC ChargeMode = "DC"
)

// ConnectorStatus is reported by the station operator; the charging core only reads it.
type ConnectorStatus string

const (
	ConnectorAvailable   ConnectorStatus = "available"
	ConnectorOccupied    ConnectorStatus = "occupied"
	ConnectorMaintenance ConnectorStatus = "maintenance"
)

// Valid reports whether s is a known status.
func (s ConnectorStatus) Valid() bool {
	switch s {
	case ConnectorAvailable, ConnectorOccupied, ConnectorMaintenance:
		return true
	}
	return false
}

// Pricing is the tariff applied to sessions at a station.
type Pricing struct {
	EnergyPerKWh float64 `json:"energyPerKwh"`
	ServiceFee   float64 `json:"serviceFee,omitempty"`
	ParkingFee   float64 `json:"parkingFee,omitempty"`
	Currency     string  `json:"currency"`
}

// Connector is a single charging gun.
type Connector struct {
	ID         string          `json:"id"`
	ChargeMode ChargeMode      `json:"chargeMode"`
	PowerKW    float64         `json:"powerKw"`
	Type       string          `json:"type"`
	Status     ConnectorStatus `json:"status"`
}

// Available reports whether a session may be started on the connector.
func (c Connector) Available() bool {
	return c.Status == ConnectorAvailable
}

// Station groups connectors at one site.
type Station struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Address    string      `json:"address"`
	Hours      string      `json:"hours,omitempty"`
	Contact    string      `json:"contact,omitempty"`
	Latitude   float64     `json:"lat,omitempty"`
	Longitude  float64     `json:"lng,omitempty"`
	Pricing    Pricing     `json:"pricing"`
	Facilities []string    `json:"facilities,omitempty"`
	Connectors []Connector `json:"connectors"`
}

// Connector looks up a connector by id.
func (s Station) Connector(id string) (Connector, bool) {
	for _, c := range s.Connectors {
		if c.ID == id {
			return c, true
		}
	}
	return Connector{}, false
}

// HasAvailableConnector reports whether any connector is free.
func (s Station) HasAvailableConnector() bool {
	for _, c := range s.Connectors {
		if c.Available() {
			return true
		}
	}
	return false
}
