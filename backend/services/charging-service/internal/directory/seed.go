package directory

import "github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"

// DemoStations is the catalog served when no database is configured.
func DemoStations() []models.Station {
	return []models.Station{
		{
			ID:         "1",
			Name:       "Station A - SwiftCharge",
			Address:    "123 Addis Street, Bole, Addis Ababa",
			Hours:      "24/7",
			Contact:    "+251 911 234567",
			Latitude:   9.03,
			Longitude:  38.74,
			Pricing:    models.Pricing{EnergyPerKWh: 15, Currency: "ETB"},
			Facilities: []string{"Restroom", "Cafe", "WiFi"},
			Connectors: []models.Connector{
				{ID: "DC-001", ChargeMode: models.ChargeModeDC, PowerKW: 50, Type: "CCS2", Status: models.ConnectorAvailable},
				{ID: "AC-001", ChargeMode: models.ChargeModeAC, PowerKW: 22, Type: "Type 2", Status: models.ConnectorOccupied},
			},
		},
		{
			ID:         "2",
			Name:       "Station B - PowerUp Hub",
			Address:    "456 Bole Road, Saris, Addis Ababa",
			Hours:      "6 AM - 10 PM",
			Contact:    "+251 912 345678",
			Latitude:   9.04,
			Longitude:  38.75,
			Pricing:    models.Pricing{EnergyPerKWh: 16, ServiceFee: 5, Currency: "ETB"},
			Facilities: []string{"Shop", "Waiting Area"},
			Connectors: []models.Connector{
				{ID: "AC-002", ChargeMode: models.ChargeModeAC, PowerKW: 22, Type: "Type 2", Status: models.ConnectorAvailable},
				{ID: "DC-002", ChargeMode: models.ChargeModeDC, PowerKW: 100, Type: "CHAdeMO", Status: models.ConnectorAvailable},
			},
		},
		{
			ID:         "3",
			Name:       "Station C - EcoCharge Point",
			Address:    "789 Summit St, Piazza, Addis Ababa",
			Hours:      "Mon-Fri 8AM-8PM",
			Contact:    "+251 913 456789",
			Latitude:   9.02,
			Longitude:  38.73,
			Pricing:    models.Pricing{EnergyPerKWh: 14.5, ParkingFee: 10, Currency: "ETB"},
			Facilities: []string{"Car Wash"},
			Connectors: []models.Connector{
				{ID: "DC-003", ChargeMode: models.ChargeModeDC, PowerKW: 50, Type: "CCS2", Status: models.ConnectorOccupied},
				{ID: "AC-003", ChargeMode: models.ChargeModeAC, PowerKW: 11, Type: "Type 2", Status: models.ConnectorMaintenance},
			},
		},
	}
}
