package errors

import "github.com/storynest/console/internal/i18n"

type categoryText struct {
	title, message, action string
}

var categoryMessages = map[i18n.Language]map[Category]categoryText{
	i18n.English: {
		CategoryNetwork: {
			"Connection Problem",
			"We couldn't reach the story land. Check your internet connection.",
			"Try Again",
		},
		CategoryAuthentication: {
			"Please Sign In Again",
			"Your session has ended. Please sign in to continue.",
			"Sign In",
		},
		CategoryAuthorization: {
			"Not Allowed",
			"You don't have permission to do that.",
			"Go Back",
		},
		CategoryValidation: {
			"Something Looks Wrong",
			"Some of the information isn't quite right. Please check and try again.",
			"Fix It",
		},
		CategoryNotFound: {
			"Not Found",
			"We couldn't find what you were looking for.",
			"Go Home",
		},
		CategoryServerError: {
			"Story Machine Hiccup",
			"Our story machine is having trouble. Please try again in a moment.",
			"Try Again",
		},
		CategoryUnknown: {
			"Oops!",
			"Something unexpected happened. Please try again.",
			"OK",
		},
	},
	i18n.Hebrew: {
		CategoryNetwork: {
			"בעיית חיבור",
			"לא הצלחנו להגיע לארץ הסיפורים. בדקו את חיבור האינטרנט.",
			"נסו שוב",
		},
		CategoryAuthentication: {
			"יש להתחבר מחדש",
			"החיבור שלך הסתיים. אנא התחברו כדי להמשיך.",
			"התחברות",
		},
		CategoryAuthorization: {
			"אין הרשאה",
			"אין לך הרשאה לעשות את זה.",
			"חזרה",
		},
		CategoryValidation: {
			"משהו לא תקין",
			"חלק מהפרטים אינם נכונים. אנא בדקו ונסו שוב.",
			"תיקון",
		},
		CategoryNotFound: {
			"לא נמצא",
			"לא הצלחנו למצוא את מה שחיפשת.",
			"לדף הבית",
		},
		CategoryServerError: {
			"תקלה במכונת הסיפורים",
			"למכונת הסיפורים יש בעיה. נסו שוב בעוד רגע.",
			"נסו שוב",
		},
		CategoryUnknown: {
			"אופס!",
			"קרה משהו לא צפוי. אנא נסו שוב.",
			"אישור",
		},
	},
}

func init() {
	for lang, table := range categoryMessages {
		entries := make(map[i18n.Key]string, len(table)*3)
		for category, text := range table {
			entries[category.TitleKey()] = text.title
			entries[category.MessageKey()] = text.message
			entries[category.ActionKey()] = text.action
		}
		i18n.Register(lang, entries)
	}
}
