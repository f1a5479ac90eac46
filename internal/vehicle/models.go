package vehicle

type Vehicle struct {
	ID              int64   `json:"id"`
	UserID          int64   `json:"user_id"`
	LicensePlate    string  `json:"license_plate"`
	Brand           string  `json:"brand"`
	Model           string  `json:"model"`
	MileageKm       float64 `json:"mileage_km"`
	FuelConsumption float64 `json:"fuel_consumption_l_per_100km"`
}

type ServiceStatus struct {
	VehicleID    int64   `json:"vehicle_id"`
	MileageKm    float64 `json:"mileage_km"`
	NeedsService bool    `json:"needs_service"`
}
