package bot

import "github.com/Veraticus/flatscout/internal/flow"

// Fixed replies. None of them carries error details.
const (
	msgGreeting        = "Hi! Choose an action:"
	msgNotUnderstood   = "⚠️ I don't understand this message. Please use the buttons below."
	msgTextOnly        = "⚠️ I can only handle text messages."
	msgUnknownCommand  = "⚠️ I don't understand this command. Please use the buttons below."
	msgCatalogDown     = "⚠️ Sorry, the listing service is not responding right now. Please try again a bit later."
	msgSaveFailed      = "⚠️ Could not save your changes. Please try again later."
	msgStoreDown       = "⚠️ Something went wrong. Please try again later."
	msgNothingFound    = "⚠️ Nothing matches your criteria. You can start a new search."
	msgFiltersFirst    = "⚠️ Pick your filters first before moving on."
	msgAllShown        = "That's all flats for your criteria 🏁"
	msgDetailFailed    = "⚠️ Could not load information about this flat."
	msgSpecialUpdated  = "Special wishes updated, shall we continue?"
	msgNoFavorites     = "You have no favourite flats yet."
	msgCompareNone     = "You haven't selected any flats to compare (2 are needed) 🧐"
	msgCompareOneMore  = "Add one more flat to compare 🧐"
	msgCompareFailed   = "❌ Could not load information about the flats."
	msgProgressFormat  = "📊 %d / %d flats viewed"
	msgAnnounceHeading = "👀 Look! A new listing for you:"

	promptRooms     = "How many rooms are you looking for?"
	promptDistricts = "Choose a district (you can pick several):"
	promptBudget    = "Choose a price range or type one, e.g. 50000-70000:"
	promptSort      = "Choose the sort order:"
	promptSpecial   = "Choose special wishes (you can pick several):"
	promptFilters   = "What would you like to change?"
)

// Callback answers.
const (
	ansFavoriteAdded   = "Added to favourites ❤️"
	ansFavoriteExists  = "Already in favourites ❤️"
	ansFavoriteRemoved = "Removed from favourites 💔"
	ansFavoriteMissing = "This flat is no longer in your favourites."
	ansCompareAdded    = "✅ Added to comparison"
	ansCompareExists   = "This flat is already in the comparison"
	ansCompareFull     = "❗ Only 2 flats can be compared"
	ansCompareCleared  = "✅ Comparison cleared"
	ansSaveFailed      = "⚠️ Could not save"
)

var hints = map[flow.Hint]string{
	flow.HintPickRoom:        "⚠️ Please pick at least one room count with the buttons below.",
	flow.HintRoomRange:       "⚠️ The number of rooms must be between 1 and 5.",
	flow.HintPickDistrict:    "⚠️ Please pick at least one district before moving on.",
	flow.HintUnknownDistrict: "⚠️ Please choose districts with the buttons below.",
	flow.HintBudgetFormat:    "⚠️ Please choose a price range with the buttons below.",
	flow.HintSortButtons:     "⚠️ Please choose the sort order with the buttons below.",
	flow.HintSpecialButtons:  "⚠️ Please choose special wishes with the buttons below.",
	flow.HintFilterButtons:   "⚠️ Please use the buttons below to change a filter.",
	flow.HintFiltersReset:    "All filters have been reset. Let's start with the rooms:",
}
