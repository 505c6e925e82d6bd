package dialog

// UI texts in English
const (
	startTextFmt = "👋 Hi %s!\n\n" +
		"I'm your reminder bot. I can:\n" +
		"• Set one-time or recurring reminders (/add)\n" +
		"• Connect to your Notion workspace (/notion)\n" +
		"• Adjust timezone and check frequency (/settings)\n\n" +
		"What would you like to do?"

	helpText = "Commands:\n" +
		"/add — create a reminder\n" +
		"/notion — Notion integration (connect, import, remove)\n" +
		"/settings — timezone and check frequency\n" +
		"/status — your current setup\n" +
		"/cancel — abort the current dialog"

	cancelText  = "Okay, cancelled. Nothing was saved."
	unknownText = "I didn't catch that. Use /add, /notion, /settings or /help."

	storeErrText = "❌ Sorry, I couldn't save that. Please try again later."

	statusFmt = "🧾 Your setup:\n" +
		"• Timezone: %s\n" +
		"• Notion: %s\n" +
		"• Watched collections: %d\n" +
		"• Check frequency: every %dh\n" +
		"• Active reminders: %d"
)

// Reminder-creation flow.
const (
	askNameText       = "Let's create a reminder! What should I call it?"
	askRecurrenceText = "Should it fire 'once' or be 'recurring'?"
	badRecurrenceText = "Please answer 'once' or 'recurring'."
	askUnitText       = "In what unit? (minutes / hours / days)"
	badUnitText       = "I know minutes, hours and days. Try 'm', 'h' or 'd'."
	askAmountText     = "How many? (a positive whole number)"
	badAmountText     = "That needs to be a positive whole number, e.g. 8."
	askContentText    = "Last step: what should the reminder say?"
)

// Integration-setup flow.
const (
	notionMenuText = "Notion integration: what would you like to do?\n" +
		"• 'connect' — link your workspace\n" +
		"• 'import' — pull tasks from a collection\n" +
		"• 'remove' — stop watching a collection\n" +
		"(or /cancel)"

	notionAskTokenText = "Let's connect Notion!\n\n" +
		"1. Go to https://www.notion.so/my-integrations\n" +
		"2. Click '+ New integration' and pick your workspace\n" +
		"3. Copy the integration token and send it to me here"

	notionBadTokenFormatText = "That doesn't look like a Notion token " +
		"(it starts with 'secret_' or 'ntn_'). Please try again."

	notionTokenRejectedText = "Notion rejected that token. " +
		"Please check it and try again, or /cancel."

	notionAskCollectionText = "Send me the id of the Notion database to import from.\n" +
		"(Share the database with your integration first.)"

	notionCollectionNotFoundText = "I can't see that database. Make sure it is " +
		"shared with your integration and send the id again."

	notionUnreachableText  = "Notion didn't answer. Please try again in a moment."
	notionNotConnectedText = "You haven't connected Notion yet. Type 'connect' first."

	notionAskNamePropFmt = "Which property holds the task name?\nAvailable: %s"
	notionAskTimePropFmt = "Which property holds the due time?\nAvailable: %s"
	notionAskDonePropFmt = "Which property marks a task as done? (or 'skip')\nAvailable: %s"

	notionImportConfirmText = "Mapping saved. Import tasks from this collection now? (yes/no)"
	notionImportDoneFmt     = "Import finished: %d imported, %d skipped."
	notionImportLaterText   = "Okay, not importing. You can run /notion again anytime."

	notionAskRemoveFmt       = "Which collection should I stop watching?\nWatched: %s"
	notionNothingWatchedText = "You aren't watching any collections yet."
	notionNotWatchedText     = "That collection isn't on your watch list. Send one of the listed ids."
	notionRemovedFmt         = "Done, no longer watching %s."
)

// Settings flow.
const (
	settingsMenuText = "What do you want to configure?\n" +
		"• 'timezone' — display timezone\n" +
		"• 'frequency' — Notion check frequency (12 or 24 hours)\n" +
		"(or /cancel)"

	askTZText    = "Send me your timezone, e.g. Europe/Berlin or Asia/Kolkata."
	badTZText    = "That's not a timezone I know. Example: Europe/Berlin"
	tzSavedFmt   = "Timezone updated: %s"
	askFreqText  = "How often should I check Notion: every 12 or 24 hours?"
	badFreqText  = "Only 12 or 24 are allowed."
	freqSavedFmt = "Check frequency updated: every %d hours."
)
