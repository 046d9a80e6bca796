package galcon

import "fmt"

// PowerBasis says which stat a transfer amount is measured in.
type PowerBasis int

const (
	BasisDefense PowerBasis = iota
	BasisAttack
)

func (b PowerBasis) String() string {
	if b == BasisAttack {
		return "attack"
	}
	return "defense"
}

// Action is a request from a planner to the host. Source == Dest means build
// BuildIndex (an index into the planet type's allowed buildings) on Source;
// otherwise send Amount of Basis power from Source to Dest.
type Action struct {
	Source     PlanetID   `json:"source"`
	Dest       PlanetID   `json:"dest"`
	Amount     float64    `json:"amount,omitempty"`
	Basis      PowerBasis `json:"basis"`
	BuildIndex int        `json:"build_index,omitempty"`
}

// TransferAction sends amount power from src to dst.
func TransferAction(src, dst PlanetID, amount float64, basis PowerBasis) Action {
	return Action{Source: src, Dest: dst, Amount: amount, Basis: basis}
}

// BuildAction starts the building at index idx of the planet's allowed list.
func BuildAction(p PlanetID, idx int) Action {
	return Action{Source: p, Dest: p, BuildIndex: idx}
}

// IsBuild reports whether the action starts a construction.
func (a Action) IsBuild() bool { return a.Source == a.Dest }

func (a Action) String() string {
	if a.IsBuild() {
		return fmt.Sprintf("build #%d on %d", a.BuildIndex, a.Source)
	}
	return fmt.Sprintf("send %.2f %s %d->%d", a.Amount, a.Basis, a.Source, a.Dest)
}
