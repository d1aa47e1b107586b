package registry

import "github.com/ethereum/go-ethereum/common"

// StationRegistered is emitted when the owner registers a new station.
type StationRegistered struct {
	Station  common.Address `json:"station"`
	Name     string         `json:"name"`
	Location string         `json:"location"`
}

func (StationRegistered) EventName() string { return "StationRegistered" }

// StationStatusChanged is emitted when the owner toggles a station.
type StationStatusChanged struct {
	Station common.Address `json:"station"`
	Active  bool           `json:"active"`
}

func (StationStatusChanged) EventName() string { return "StationStatusChanged" }

// ReadingSubmitted is emitted for every stored reading.
type ReadingSubmitted struct {
	ID          uint64         `json:"id"`
	Station     common.Address `json:"station"`
	Location    string         `json:"location"`
	WeatherType string         `json:"weather_type"`
}

func (ReadingSubmitted) EventName() string { return "ReadingSubmitted" }

// ReadingVerified is emitted on each confirmation. Verified carries the flag
// state after the confirmation, so the quorum crossing is observable.
type ReadingVerified struct {
	ID       uint64         `json:"id"`
	Verifier common.Address `json:"verifier"`
	Count    uint32         `json:"count"`
	Verified bool           `json:"verified"`
}

func (ReadingVerified) EventName() string { return "ReadingVerified" }
