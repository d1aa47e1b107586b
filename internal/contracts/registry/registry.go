package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/yourusername/weathershield/ledger-service/internal/ledger"
)

const (
	// VerificationQuorum is the number of distinct station confirmations
	// after which a reading counts as verified.
	VerificationQuorum = 3

	// InitialReputation is the score a station starts with at registration.
	InitialReputation = 100

	// ReputationReward is credited to a reading's submitter when the
	// reading crosses the verification quorum.
	ReputationReward = 10

	// RecentWindow bounds the RecentReadingIDs scan.
	RecentWindow = 24 * time.Hour
)

var (
	ErrNotOwner         = errors.New("caller is not the contract owner")
	ErrStationExists    = errors.New("station already registered")
	ErrUnknownStation   = errors.New("station not registered")
	ErrStationInactive  = errors.New("station is not active")
	ErrUnknownReading   = errors.New("reading id out of range")
	ErrSelfVerification = errors.New("station cannot verify its own reading")
	ErrAlreadyVerified  = errors.New("station already verified this reading")
)

// Station is a registered weather station identity.
type Station struct {
	Addr         common.Address
	Name         string
	Location     string
	Active       bool
	Reputation   uint64
	TotalReports uint64
}

// Reading is a single weather observation. Temperature is Celsius scaled
// by 100 and signed; wind speed and precipitation are scaled by 100;
// humidity and pressure are whole numbers.
type Reading struct {
	ID                uint64
	Location          string
	Temperature       int64
	Humidity          uint64
	Pressure          uint64
	WindSpeed         uint64
	Precipitation     uint64
	WeatherType       string
	ExternalRef       string
	Station           common.Address
	SubmittedAt       time.Time
	VerificationCount uint32
	Verified          bool
}

// ReadingInput carries the measurements for a new reading submission.
type ReadingInput struct {
	Location      string
	Temperature   int64
	Humidity      uint64
	Pressure      uint64
	WindSpeed     uint64
	Precipitation uint64
	WeatherType   string
	ExternalRef   string
}

// StationRegistry owns station identities and weather readings and applies
// the quorum verification rule. Readings are never deleted; a verified
// reading is immutable.
//
// The global reading order assumes non-decreasing submission timestamps;
// RecentReadingIDs relies on that to stop scanning early. The invariant is
// documented, not enforced.
type StationRegistry struct {
	env   *ledger.Env
	log   ledger.EventLog
	owner common.Address

	stations   map[common.Address]*Station
	readings   map[uint64]*Reading
	order      []uint64
	byLocation map[string][]uint64
	verifiers  map[uint64]map[common.Address]bool
	nextID     uint64
}

// NewStationRegistry deploys a registry owned by the given address.
func NewStationRegistry(env *ledger.Env, owner common.Address) *StationRegistry {
	return &StationRegistry{
		env:        env,
		owner:      owner,
		stations:   make(map[common.Address]*Station),
		readings:   make(map[uint64]*Reading),
		byLocation: make(map[string][]uint64),
		verifiers:  make(map[uint64]map[common.Address]bool),
		nextID:     1,
	}
}

// Owner returns the deployer address.
func (r *StationRegistry) Owner() common.Address {
	return r.owner
}

// Events exposes the append-only event log.
func (r *StationRegistry) Events() *ledger.EventLog {
	return &r.log
}

// RegisterStation adds a station to the registry. Owner only; a station
// address can be registered once and is never deleted.
func (r *StationRegistry) RegisterStation(call ledger.Call, addr common.Address, name, location string) error {
	if call.Caller != r.owner {
		return ErrNotOwner
	}
	if _, exists := r.stations[addr]; exists {
		return fmt.Errorf("%w: %s", ErrStationExists, addr.Hex())
	}
	r.stations[addr] = &Station{
		Addr:       addr,
		Name:       name,
		Location:   location,
		Active:     true,
		Reputation: InitialReputation,
	}
	r.log.Emit(StationRegistered{Station: addr, Name: name, Location: location})
	return nil
}

// ToggleStationStatus flips a station's active flag. Owner only.
func (r *StationRegistry) ToggleStationStatus(call ledger.Call, addr common.Address) error {
	if call.Caller != r.owner {
		return ErrNotOwner
	}
	station, ok := r.stations[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStation, addr.Hex())
	}
	station.Active = !station.Active
	r.log.Emit(StationStatusChanged{Station: addr, Active: station.Active})
	return nil
}

// SubmitReading stores a new unverified reading authored by the calling
// station and returns its identifier.
func (r *StationRegistry) SubmitReading(call ledger.Call, in ReadingInput) (uint64, error) {
	station, err := r.activeStation(call.Caller)
	if err != nil {
		return 0, err
	}

	id := r.nextID
	r.nextID++

	reading := &Reading{
		ID:            id,
		Location:      in.Location,
		Temperature:   in.Temperature,
		Humidity:      in.Humidity,
		Pressure:      in.Pressure,
		WindSpeed:     in.WindSpeed,
		Precipitation: in.Precipitation,
		WeatherType:   in.WeatherType,
		ExternalRef:   in.ExternalRef,
		Station:       call.Caller,
		SubmittedAt:   r.env.Now(),
	}
	r.readings[id] = reading
	r.order = append(r.order, id)
	r.byLocation[in.Location] = append(r.byLocation[in.Location], id)
	r.verifiers[id] = make(map[common.Address]bool)
	station.TotalReports++

	r.log.Emit(ReadingSubmitted{
		ID:          id,
		Station:     call.Caller,
		Location:    in.Location,
		WeatherType: in.WeatherType,
	})
	return id, nil
}

// VerifyReading records one confirmation from the calling station. The
// verification count increments on every confirmation; the verified flag is
// set exactly when the count first reaches the quorum, and the submitter's
// reputation is credited once, at that crossing.
func (r *StationRegistry) VerifyReading(call ledger.Call, id uint64) error {
	if _, err := r.activeStation(call.Caller); err != nil {
		return err
	}
	reading, ok := r.readings[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownReading, id)
	}
	if reading.Station == call.Caller {
		return ErrSelfVerification
	}
	if r.verifiers[id][call.Caller] {
		return ErrAlreadyVerified
	}

	r.verifiers[id][call.Caller] = true
	reading.VerificationCount++

	if !reading.Verified && reading.VerificationCount >= VerificationQuorum {
		reading.Verified = true
		if submitter, ok := r.stations[reading.Station]; ok {
			submitter.Reputation += ReputationReward
		}
	}

	r.log.Emit(ReadingVerified{
		ID:       id,
		Verifier: call.Caller,
		Count:    reading.VerificationCount,
		Verified: reading.Verified,
	})
	return nil
}

// GetReading returns a copy of a reading.
func (r *StationRegistry) GetReading(id uint64) (Reading, error) {
	reading, ok := r.readings[id]
	if !ok {
		return Reading{}, fmt.Errorf("%w: %d", ErrUnknownReading, id)
	}
	return *reading, nil
}

// GetStation returns a copy of a station record.
func (r *StationRegistry) GetStation(addr common.Address) (Station, error) {
	station, ok := r.stations[addr]
	if !ok {
		return Station{}, fmt.Errorf("%w: %s", ErrUnknownStation, addr.Hex())
	}
	return *station, nil
}

// HasVerified reports whether a station already confirmed a reading.
func (r *StationRegistry) HasVerified(id uint64, addr common.Address) bool {
	return r.verifiers[id][addr]
}

// ReadingCount returns the number of readings submitted so far.
func (r *StationRegistry) ReadingCount() uint64 {
	return r.nextID - 1
}

// ReadingIDsByLocation returns reading identifiers submitted for a location,
// oldest first.
func (r *StationRegistry) ReadingIDsByLocation(location string) []uint64 {
	ids := r.byLocation[location]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

// RecentReadingIDs returns identifiers of readings submitted within the last
// 24 hours, newest first. It scans the global list from the tail and stops at
// the first reading older than the cutoff, which is correct only while
// submission timestamps never decrease.
func (r *StationRegistry) RecentReadingIDs() []uint64 {
	cutoff := r.env.Now().Add(-RecentWindow)
	var out []uint64
	for i := len(r.order) - 1; i >= 0; i-- {
		reading := r.readings[r.order[i]]
		if reading.SubmittedAt.Before(cutoff) {
			break
		}
		out = append(out, reading.ID)
	}
	return out
}

func (r *StationRegistry) activeStation(addr common.Address) (*Station, error) {
	station, ok := r.stations[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStation, addr.Hex())
	}
	if !station.Active {
		return nil, fmt.Errorf("%w: %s", ErrStationInactive, addr.Hex())
	}
	return station, nil
}
