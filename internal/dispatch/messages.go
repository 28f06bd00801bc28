package dispatch

const (
	menuText = "👋 Hi! I'm your career assistant bot.\n" +
		"Choose how you'd like to begin:\n" +
		"1️⃣ Type *chat* to talk freely about your career.\n" +
		"2️⃣ Type *riasec* to take a short personality-based test.\n" +
		"3️⃣ Type *motivation* to explore your core career motivators.\n"

	chatAckText     = "🧠 Okay, let's talk! Tell me about your background, goals, or ask a career question."
	choicePrompt    = "❗Please type one of: *chat*, *riasec*, or *motivation*."
	yesNoPrompt     = "Please answer with 'yes' or 'no'."
	continuePrompt  = "Type *chat*, *riasec*, or *motivation* to continue."
	completedFormat = "✅ Test complete! Your top %s: *%s*"
	noResultFormat  = "✅ Test complete! You didn't answer yes to any question, so there are no top %s to show."
)
