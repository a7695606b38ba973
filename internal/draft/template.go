package draft

// ActionKind distinguishes bans from picks.
type ActionKind string

const (
	KindBan  ActionKind = "ban"
	KindPick ActionKind = "pick"
)

// Step is one position in the draft template: which slot acts and what kind
// of action it must submit.
type Step struct {
	Slot int
	Kind ActionKind
}

// Template is the fixed tournament draft order: two ban rounds and two pick
// rounds, 10 bans + 10 picks, each step owned by one of the ten slots
// (0-4 blue, 5-9 red). The order is deterministic and independent of which
// player sits in a slot.
var Template = []Step{
	// Ban round 1
	{Slot: 0, Kind: KindBan},
	{Slot: 5, Kind: KindBan},
	{Slot: 1, Kind: KindBan},
	{Slot: 6, Kind: KindBan},
	{Slot: 2, Kind: KindBan},
	{Slot: 7, Kind: KindBan},
	// Pick round 1
	{Slot: 0, Kind: KindPick},
	{Slot: 5, Kind: KindPick},
	{Slot: 6, Kind: KindPick},
	{Slot: 1, Kind: KindPick},
	{Slot: 2, Kind: KindPick},
	{Slot: 7, Kind: KindPick},
	// Ban round 2
	{Slot: 8, Kind: KindBan},
	{Slot: 3, Kind: KindBan},
	{Slot: 9, Kind: KindBan},
	{Slot: 4, Kind: KindBan},
	// Pick round 2
	{Slot: 8, Kind: KindPick},
	{Slot: 3, Kind: KindPick},
	{Slot: 4, Kind: KindPick},
	{Slot: 9, Kind: KindPick},
}
