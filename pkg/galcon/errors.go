package galcon

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBundle        = errors.New("bundle has no whole units")
	ErrNegativeCount      = errors.New("negative unit count")
	ErrBundleSize         = errors.New("bundle length does not match unit catalog")
	ErrInsufficientUnits  = errors.New("not enough units on planet")
	ErrUnknownPlanet      = errors.New("unknown planet")
	ErrUnknownUnitType    = errors.New("unknown unit type")
	ErrUnknownBuilding    = errors.New("unknown building")
	ErrConstructionBusy   = errors.New("planet is already constructing")
	ErrNoFreeSlot         = errors.New("planet has no free building slot")
	ErrBuildingNotAllowed = errors.New("building not allowed on planet type")
	ErrNotOwner           = errors.New("planet not owned by player")
	ErrInvalidAmount      = errors.New("transfer amount must be positive")
	ErrInvalidSettings    = errors.New("invalid planner settings")
	ErrInvalidCatalog     = errors.New("invalid unit catalog")
	ErrInvalidScenario    = errors.New("invalid scenario")
)

// ActionError describes why an action could not be realised.
type ActionError struct {
	Action Action
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
