package flow

// Commands and keyboard labels understood by the conversation.
const (
	CmdStart      = "/start"
	CmdStartPlain = "start"

	BtnFind         = "🔍 Find a flat"
	BtnFavorites    = "💌 Favourites"
	BtnNext         = "➡️ Next"
	BtnBack         = "⬅️ Back"
	BtnChangeFilter = "⚙️ Change search filter"
	BtnChangeSort   = "🔃 Change sorting"
	BtnSpecial      = "📝 Special wishes"
	BtnCompare      = "🆚 Compare selected"

	BtnSortCheap     = "💰 Cheapest first"
	BtnSortExpensive = "💰 Most expensive first"
	BtnSortNewest    = "🕒 Newest"

	BtnRestricted    = "🇺🇦 YeOselya"
	BtnNotFirstFloor = "🧱 Not first floor"
	BtnNotLastFloor  = "🏢 Not last floor"

	BtnEditRooms     = "🛏 Rooms"
	BtnEditDistricts = "📍 District"
	BtnEditBudget    = "💰 Budget"
	BtnResetFilters  = "🔄 Reset all filters"

	// Checked prefixes selected options on toggle keyboards.
	Checked = "✅ "

	nextGlyph = "➡️"
	backGlyph = "⬅️"
	checkMark = "✅"
)

// Substrings identifying the special filter buttons regardless of the
// checkmark prefix.
const (
	keyRestricted    = "YeOselya"
	keyNotFirstFloor = "Not first floor"
	keyNotLastFloor  = "Not last floor"
)

// BudgetPresets are the price ranges offered as buttons.
var BudgetPresets = []string{
	"до 45000",
	"45000-55000",
	"55000-65000",
	"65000-80000",
	"80000-100000",
	"100000-200000",
	"200000+",
}

// RoomButtons is the number of room counts offered as buttons. Larger
// counts up to the maximum are accepted as typed input.
const RoomButtons = 4
