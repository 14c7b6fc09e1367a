package i18n

import "fmt"

// Key identifies a localized string.
type Key string

// Thread and composer
const (
	WelcomeTitle            Key = "thread.welcome.title"
	WelcomeSubtitle         Key = "thread.welcome.subtitle"
	ComposerPlaceholder     Key = "composer.placeholder"
	ComposerEmptyHint       Key = "composer.placeholder.empty"
	ComposerEditHint        Key = "composer.placeholder.edit"
	ComposerSend            Key = "composer.send"
	ComposerCancel          Key = "composer.cancel"
	ComposerEditSubmit      Key = "composer.edit.submit"
	ComposerEditCancel      Key = "composer.edit.cancel"
	BranchPrevious          Key = "tooltip.branch.previous"
	BranchNext              Key = "tooltip.branch.next"
	ActionRegenerate        Key = "tooltip.regenerate"
	ActionEdit              Key = "tooltip.edit"
	ActionPlay              Key = "tooltip.play"
	ActionStop              Key = "tooltip.stop"
	ThreadGenerating        Key = "thread.generating"
	ThreadChoicesTitle      Key = "thread.choices.title"
	ThreadTheEnd            Key = "thread.end"
	RoleUser                Key = "role.user"
	RoleAssistant           Key = "role.assistant"
	SuggestionDragon        Key = "suggestion.dragon"
	SuggestionMoon          Key = "suggestion.moon"
	SuggestionForest        Key = "suggestion.forest"
	SuggestionTreasure      Key = "suggestion.treasure"
	SuggestionsTitle        Key = "suggestion.title"
	ReaderHelp              Key = "reader.help"
	ReaderCustomChoice      Key = "reader.custom_choice"
	ReaderSafetyWarning     Key = "reader.safety_warning"
	ReaderSpeechUnavailable Key = "reader.speech_unavailable"
)

// Shell, screens and error presentation
const (
	HeaderGreeting     Key = "header.greeting"
	HeaderGuest        Key = "header.guest"
	HeaderChapter      Key = "header.chapter"
	HeaderOnline       Key = "header.online"
	HeaderOffline      Key = "header.offline"
	ToastDismiss       Key = "toast.dismiss"
	ToastRetry         Key = "toast.retry"
	BoundaryReset      Key = "boundary.reset"
	ChildrenTitle      Key = "children.title"
	ChildrenEmpty      Key = "children.empty"
	ChildrenReloaded   Key = "children.reloaded"
	ChildrenHelp       Key = "children.help"
	ChildrenDashboard  Key = "children.dashboard"
	LoginTitle         Key = "login.title"
	RegisterTitle      Key = "register.title"
	ForgotTitle        Key = "forgot.title"
	LoginEmail         Key = "login.email"
	LoginPassword      Key = "login.password"
	LoginName          Key = "login.name"
	LoginHelp          Key = "login.help"
	LoginSubmitting    Key = "login.submitting"
	ForgotSent         Key = "forgot.sent"
	LogoutDone         Key = "logout.done"
	ResetTitle         Key = "reset.title"
	ResetCode          Key = "reset.code"
	ResetDone          Key = "reset.done"
	FormBackHelp       Key = "form.back_help"
	FormRequired       Key = "form.required"
	DashboardHelp      Key = "dashboard.help"
	DashboardFamily    Key = "dashboard.family"
	DashboardChild     Key = "dashboard.child"
	DashboardStories   Key = "dashboard.stories"
	DashboardMinutes   Key = "dashboard.minutes"
	DashboardStreak    Key = "dashboard.streak"
	DashboardAge       Key = "dashboard.age"
	DashboardCurrent   Key = "dashboard.current"
	DashboardTotal     Key = "dashboard.total"
	AppBackHelp        Key = "app.back_help"
)

// Story library, reader profiles and progress reports
const (
	RecommendedTitle    Key = "recommended.title"
	LibraryTitle        Key = "library.title"
	LibraryEmpty        Key = "library.empty"
	LibraryHelp         Key = "library.help"
	LibraryFilter       Key = "library.filter"
	LibraryAny          Key = "library.any"
	LibraryColTitle     Key = "library.col.title"
	LibraryColTheme     Key = "library.col.theme"
	LibraryColLanguage  Key = "library.col.language"
	LibraryColLevel     Key = "library.col.level"
	LibraryColChapters  Key = "library.col.chapters"
	ProfileAddTitle     Key = "profile.add.title"
	ProfileEditTitle    Key = "profile.edit.title"
	ProfileName         Key = "profile.name"
	ProfileAge          Key = "profile.age"
	ProfileLanguage     Key = "profile.language"
	ProfileLevel        Key = "profile.level"
	ProfileInterests    Key = "profile.interests"
	ProfileHelp         Key = "profile.help"
	ProfileSaved        Key = "profile.saved"
	ProfileRemoved      Key = "profile.removed"
	ProfileConfirm      Key = "profile.confirm"
	ProgressTitle       Key = "progress.title"
	ProgressLevel       Key = "progress.level"
	ProgressMinutes     Key = "progress.minutes"
	ProgressCompleted   Key = "progress.completed"
	ProgressVocabulary  Key = "progress.vocabulary"
	ProgressPeriodWeek  Key = "progress.period.week"
	ProgressPeriodMonth Key = "progress.period.month"
	ProgressPeriodQtr   Key = "progress.period.quarter"
	ProgressPeriodYear  Key = "progress.period.year"
)

var catalog = map[Language]map[Key]string{
	English: {
		WelcomeTitle:            "Welcome to your story adventure!",
		WelcomeSubtitle:         "Pick an idea below or tell me what story you would like.",
		ComposerPlaceholder:     "What should happen next?",
		ComposerEmptyHint:       "Tell me what story you want...",
		ComposerEditHint:        "Change your message...",
		ComposerSend:            "Send",
		ComposerCancel:          "Stop",
		ComposerEditSubmit:      "Update",
		ComposerEditCancel:      "Cancel",
		BranchPrevious:          "Previous version",
		BranchNext:              "Next version",
		ActionRegenerate:        "Tell it differently",
		ActionEdit:              "Edit",
		ActionPlay:              "Read aloud",
		ActionStop:              "Stop reading",
		ThreadGenerating:        "Writing your story...",
		ThreadChoicesTitle:      "What do you choose?",
		ThreadTheEnd:            "The End",
		RoleUser:                "You",
		RoleAssistant:           "Storyteller",
		SuggestionDragon:        "A brave dragon who is afraid of the dark",
		SuggestionMoon:          "A trip to the moon with my best friend",
		SuggestionForest:        "A magical forest full of talking animals",
		SuggestionTreasure:      "An underwater treasure hunt",
		SuggestionsTitle:        "Story ideas",
		ReaderHelp:              "tab story/typing · enter send · 1-9 choose · ←/→ versions · r retell · e edit · p read aloud · esc stop",
		ReaderCustomChoice:      "My own idea",
		ReaderSafetyWarning:     "This part of the story is being checked by a grown-up.",
		ReaderSpeechUnavailable: "Reading aloud is not available on this computer.",

		HeaderGreeting:    "Hello, %s!",
		HeaderGuest:       "Hello!",
		HeaderChapter:     "Chapter %d of %d",
		HeaderOnline:      "online",
		HeaderOffline:     "offline",
		ToastDismiss:      "Dismiss",
		ToastRetry:        "Retry",
		BoundaryReset:     "Start over",
		ChildrenTitle:     "Who is reading today?",
		ChildrenEmpty:     "No reader profiles yet. Ask a grown-up to add one.",
		ChildrenReloaded:  "%d reader profiles loaded.",
		ChildrenHelp:      "↑/↓ choose · enter start reading · s stories · a add · e edit · x remove · d dashboard · ctrl+l log out",
		ChildrenDashboard: "Reading dashboard",
		LoginTitle:        "Sign in",
		RegisterTitle:     "Create an account",
		ForgotTitle:       "Reset your password",
		LoginEmail:        "Email",
		LoginPassword:     "Password",
		LoginName:         "Name",
		LoginHelp:         "tab next field · enter submit · ctrl+r register · ctrl+f forgot password",
		LoginSubmitting:   "Signing in...",
		ForgotSent:        "If the address exists, a reset link is on its way.",
		LogoutDone:        "You have been signed out.",
		ResetTitle:        "Choose a new password",
		ResetCode:         "Reset code",
		ResetDone:         "Your password was changed. Please sign in.",
		FormBackHelp:      "tab next field · enter submit · esc back to sign in",
		FormRequired:      "Please fill in every field.",
		DashboardHelp:     "p change period · esc back",
		DashboardFamily:   "Family reading",
		DashboardChild:    "Reader",
		DashboardStories:  "Stories",
		DashboardMinutes:  "Minutes",
		DashboardStreak:   "Streak",
		DashboardAge:      "Age",
		DashboardCurrent:  "Reading now: %s (%d%%)",
		DashboardTotal:    "Total",
		AppBackHelp:       "ctrl+b readers · ctrl+c quit",

		RecommendedTitle:    "Stories for you",
		LibraryTitle:        "Story library",
		LibraryEmpty:        "No stories here yet.",
		LibraryHelp:         "↑/↓ choose · enter read · t theme · g language · v level · esc back",
		LibraryFilter:       "Theme: %s · Language: %s · Level: %s",
		LibraryAny:          "any",
		LibraryColTitle:     "Title",
		LibraryColTheme:     "Theme",
		LibraryColLanguage:  "Language",
		LibraryColLevel:     "Level",
		LibraryColChapters:  "Chapters",
		ProfileAddTitle:     "New reader profile",
		ProfileEditTitle:    "Edit reader profile",
		ProfileName:         "Name",
		ProfileAge:          "Age",
		ProfileLanguage:     "Language (english or hebrew)",
		ProfileLevel:        "Reading level (beginner, intermediate or advanced)",
		ProfileInterests:    "Interests, comma separated",
		ProfileHelp:         "tab next field · enter save · esc cancel",
		ProfileSaved:        "%s's profile was saved.",
		ProfileRemoved:      "%s's profile was removed.",
		ProfileConfirm:      "Press x again to remove %s's profile.",
		ProgressTitle:       "Progress this %s",
		ProgressLevel:       "Reading level",
		ProgressMinutes:     "Minutes read",
		ProgressCompleted:   "Stories finished",
		ProgressVocabulary:  "New words",
		ProgressPeriodWeek:  "week",
		ProgressPeriodMonth: "month",
		ProgressPeriodQtr:   "quarter",
		ProgressPeriodYear:  "year",
	},
	Hebrew: {
		WelcomeTitle:            "ברוכים הבאים להרפתקת הסיפור שלכם!",
		WelcomeSubtitle:         "בחרו רעיון או ספרו לי איזה סיפור תרצו.",
		ComposerPlaceholder:     "מה יקרה עכשיו?",
		ComposerEmptyHint:       "ספרו לי איזה סיפור תרצו...",
		ComposerEditHint:        "שנו את ההודעה...",
		ComposerSend:            "שליחה",
		ComposerCancel:          "עצירה",
		ComposerEditSubmit:      "עדכון",
		ComposerEditCancel:      "ביטול",
		BranchPrevious:          "גרסה קודמת",
		BranchNext:              "גרסה הבאה",
		ActionRegenerate:        "ספרו אחרת",
		ActionEdit:              "עריכה",
		ActionPlay:              "הקראה",
		ActionStop:              "עצירת הקראה",
		ThreadGenerating:        "כותבים את הסיפור שלך...",
		ThreadChoicesTitle:      "מה תבחרו?",
		ThreadTheEnd:            "הסוף",
		RoleUser:                "אני",
		RoleAssistant:           "מספר הסיפורים",
		SuggestionDragon:        "דרקון אמיץ שמפחד מהחושך",
		SuggestionMoon:          "טיול לירח עם החבר הכי טוב שלי",
		SuggestionForest:        "יער קסום מלא חיות מדברות",
		SuggestionTreasure:      "חיפוש אוצר מתחת למים",
		SuggestionsTitle:        "רעיונות לסיפור",
		ReaderHelp:              "tab סיפור/הקלדה · enter שליחה · 1-9 בחירה · ←/→ גרסאות · r לספר אחרת · e עריכה · p הקראה · esc עצירה",
		ReaderCustomChoice:      "רעיון משלי",
		ReaderSafetyWarning:     "מבוגר בודק את החלק הזה של הסיפור.",
		ReaderSpeechUnavailable: "הקראה אינה זמינה במחשב הזה.",

		HeaderGreeting:    "שלום, %s!",
		HeaderGuest:       "שלום!",
		HeaderChapter:     "פרק %d מתוך %d",
		HeaderOnline:      "מחובר",
		HeaderOffline:     "לא מחובר",
		ToastDismiss:      "סגירה",
		ToastRetry:        "ניסיון חוזר",
		BoundaryReset:     "להתחיל מחדש",
		ChildrenTitle:     "מי קורא היום?",
		ChildrenEmpty:     "עדיין אין פרופילים. בקשו ממבוגר להוסיף אחד.",
		ChildrenReloaded:  "נטענו %d פרופילים.",
		ChildrenHelp:      "↑/↓ בחירה · enter התחלת קריאה · s סיפורים · a הוספה · e עריכה · x הסרה · d לוח מעקב · ctrl+l התנתקות",
		ChildrenDashboard: "לוח מעקב קריאה",
		LoginTitle:        "התחברות",
		RegisterTitle:     "יצירת חשבון",
		ForgotTitle:       "איפוס סיסמה",
		LoginEmail:        "אימייל",
		LoginPassword:     "סיסמה",
		LoginName:         "שם",
		LoginHelp:         "tab שדה הבא · enter שליחה · ctrl+r הרשמה · ctrl+f שכחתי סיסמה",
		LoginSubmitting:   "מתחברים...",
		ForgotSent:        "אם הכתובת קיימת, קישור לאיפוס בדרך אליך.",
		LogoutDone:        "התנתקת בהצלחה.",
		ResetTitle:        "בחירת סיסמה חדשה",
		ResetCode:         "קוד איפוס",
		ResetDone:         "הסיסמה שונתה. אפשר להתחבר.",
		FormBackHelp:      "tab שדה הבא · enter שליחה · esc חזרה להתחברות",
		FormRequired:      "נא למלא את כל השדות.",
		DashboardHelp:     "p שינוי תקופה · esc חזרה",
		DashboardFamily:   "קריאה משפחתית",
		DashboardChild:    "קורא",
		DashboardStories:  "סיפורים",
		DashboardMinutes:  "דקות",
		DashboardStreak:   "רצף",
		DashboardAge:      "גיל",
		DashboardCurrent:  "קורא עכשיו: %s (%d%%)",
		DashboardTotal:    "סה\"כ",
		AppBackHelp:       "ctrl+b קוראים · ctrl+c יציאה",

		RecommendedTitle:    "סיפורים בשבילך",
		LibraryTitle:        "ספריית הסיפורים",
		LibraryEmpty:        "אין כאן סיפורים עדיין.",
		LibraryHelp:         "↑/↓ בחירה · enter קריאה · t נושא · g שפה · v רמה · esc חזרה",
		LibraryFilter:       "נושא: %s · שפה: %s · רמה: %s",
		LibraryAny:          "הכל",
		LibraryColTitle:     "שם",
		LibraryColTheme:     "נושא",
		LibraryColLanguage:  "שפה",
		LibraryColLevel:     "רמה",
		LibraryColChapters:  "פרקים",
		ProfileAddTitle:     "פרופיל קורא חדש",
		ProfileEditTitle:    "עריכת פרופיל קורא",
		ProfileName:         "שם",
		ProfileAge:          "גיל",
		ProfileLanguage:     "שפה (english או hebrew)",
		ProfileLevel:        "רמת קריאה (beginner, intermediate או advanced)",
		ProfileInterests:    "תחומי עניין, מופרדים בפסיקים",
		ProfileHelp:         "tab שדה הבא · enter שמירה · esc ביטול",
		ProfileSaved:        "הפרופיל של %s נשמר.",
		ProfileRemoved:      "הפרופיל של %s הוסר.",
		ProfileConfirm:      "לחצו x שוב כדי להסיר את הפרופיל של %s.",
		ProgressTitle:       "התקדמות ב%s האחרון",
		ProgressLevel:       "רמת קריאה",
		ProgressMinutes:     "דקות קריאה",
		ProgressCompleted:   "סיפורים שהסתיימו",
		ProgressVocabulary:  "מילים חדשות",
		ProgressPeriodWeek:  "שבוע",
		ProgressPeriodMonth: "חודש",
		ProgressPeriodQtr:   "רבעון",
		ProgressPeriodYear:  "שנה",
	},
}

// Register adds or replaces entries for a language. Error tables are
// registered this way by the errors package so that all strings live in one
// resolver.
func Register(lang Language, entries map[Key]string) {
	table, ok := catalog[lang]
	if !ok {
		table = make(map[Key]string, len(entries))
		catalog[lang] = table
	}
	for k, v := range entries {
		table[k] = v
	}
}

// Lookup returns the entry for key in lang and whether it exists.
func Lookup(lang Language, key Key) (string, bool) {
	table, ok := catalog[lang]
	if !ok {
		return "", false
	}
	s, ok := table[key]
	return s, ok && s != ""
}

// T resolves key for lang. A missing entry renders the key itself so the gap
// is visible; tests guarantee it never happens for shipped keys.
func T(lang Language, key Key) string {
	if s, ok := Lookup(lang, key); ok {
		return s
	}
	return string(key)
}

// Tf resolves key for lang and formats it with args.
func Tf(lang Language, key Key, args ...interface{}) string {
	return fmt.Sprintf(T(lang, key), args...)
}

// Keys returns every key defined for the given language.
func Keys(lang Language) []Key {
	table := catalog[lang]
	keys := make([]Key, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	return keys
}

// Suggestions returns the quick-start prompts in display order.
func Suggestions(lang Language) []string {
	return []string{
		T(lang, SuggestionDragon),
		T(lang, SuggestionMoon),
		T(lang, SuggestionForest),
		T(lang, SuggestionTreasure),
	}
}

// Resolver binds a language source to the lookup functions. Components hold a
// Resolver instead of a fixed Language so a profile switch is picked up on the
// next render.
type Resolver struct {
	current func() Language
}

// NewResolver creates a resolver reading the active language from current.
func NewResolver(current func() Language) Resolver {
	return Resolver{current: current}
}

// Fixed creates a resolver pinned to one language.
func Fixed(lang Language) Resolver {
	return Resolver{current: func() Language { return lang }}
}

// Language returns the active language.
func (r Resolver) Language() Language {
	if r.current == nil {
		return English
	}
	lang := r.current()
	if !lang.Valid() {
		return English
	}
	return lang
}

// T resolves key in the active language.
func (r Resolver) T(key Key) string {
	return T(r.Language(), key)
}

// Tf resolves and formats key in the active language.
func (r Resolver) Tf(key Key, args ...interface{}) string {
	return Tf(r.Language(), key, args...)
}

// Direction returns the text direction of the active language.
func (r Resolver) Direction() Direction {
	return r.Language().Direction()
}
