// Package profile resolves the run's inputs: which vehicle, which payment
// card, and the applicant address. Profiles live in JSON files next to the
// tool; resolution is either flag-driven (unattended) or an interactive
// numbered prompt when an operator is attached.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// File names the original tooling established; kept for compatibility with
// existing profile directories.
const (
	vehiclesFile  = "info_cars.json"
	cardsFile     = "info_payment_cards.json"
	addressesFile = "info_addresses.json"
)

// Vehicle is one entry of info_cars.json.
type Vehicle struct {
	Name  string `json:"name"`
	Plate string `json:"plate"`
}

// Card is one entry of info_payment_cards.json.
type Card struct {
	Name   string `json:"card_name"`
	Holder string `json:"cardholder_name"`
	Number string `json:"card_number"`
	Expiry string `json:"card_expiry"`
	CVV    string `json:"card_CVV"`
}

// Address is the applicant data of info_addresses.json.
type Address struct {
	Initials     string `json:"initals"` // field name kept as the form scripts spell it
	Surname      string `json:"surname"`
	StreetNumber string `json:"steetNumber"`
	StreetName   string `json:"streetName"`
	Duration     string `json:"permit_duration"`
}

// Selection is a fully resolved set of run inputs.
type Selection struct {
	Vehicle Vehicle
	Card    Card
	Address Address
}

// Store loads and holds the profile files.
type Store struct {
	Vehicles []Vehicle
	Cards    []Card
	Address  Address
}

// LoadStore reads the three profile files from dir.
func LoadStore(dir string) (*Store, error) {
	s := &Store{}

	if err := readJSON(filepath.Join(dir, vehiclesFile), &s.Vehicles); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, cardsFile), &s.Cards); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, addressesFile), &s.Address); err != nil {
		return nil, err
	}

	if len(s.Vehicles) == 0 {
		return nil, fmt.Errorf("%s contains no vehicles", vehiclesFile)
	}
	if len(s.Cards) == 0 {
		return nil, fmt.Errorf("%s contains no payment cards", cardsFile)
	}
	return s, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read profile file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cannot parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// VehicleByPlate finds a vehicle by exact plate.
func (s *Store) VehicleByPlate(plate string) (Vehicle, error) {
	for _, v := range s.Vehicles {
		if v.Plate == plate {
			return v, nil
		}
	}
	return Vehicle{}, fmt.Errorf("no vehicle with plate %s in %s", plate, vehiclesFile)
}

// CardByName finds a payment card by its configured name.
func (s *Store) CardByName(name string) (Card, error) {
	for _, c := range s.Cards {
		if c.Name == name {
			return c, nil
		}
	}
	return Card{}, fmt.Errorf("no payment card named %s in %s", name, cardsFile)
}
