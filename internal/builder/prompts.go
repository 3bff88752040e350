package builder

import "cv-intake-go/internal/types"

// Prompt text per step and locale. The welcome entry doubles as the
// question for the name step, so StartSession asks it immediately.
var englishPrompts = map[types.BuilderStep]string{
	types.StepWelcome: "Hello! I'm your CV assistant. I'll help you create a professional CV. " +
		"Let's start with some basic information.\n\nWhat's your full name?",
	types.StepName:       "What's your full name?",
	types.StepEmail:      "What's your email address?",
	types.StepPhone:      "Perfect! What's your phone number?",
	types.StepExperience: "Thanks! Now let's talk about your work experience. Tell me about a role, like \"Backend Engineer at Nimbus, 2021 - Present\".",
	types.StepSkills:     "What are your main skills? List them separated by commas.",
	types.StepEducation:  "Now your education. Tell me about a degree, like \"BSc Computer Science, Damascus University, 2015 - 2019\".",
	types.StepSummary:    "Almost done! Write a short professional summary about yourself.",
	types.StepDone:       "Your CV draft is complete. You can review it or start a new session any time.",
}

var arabicPrompts = map[types.BuilderStep]string{
	types.StepWelcome:    "أهلاً بك! أنا مساعدك لبناء السيرة الذاتية. سنبدأ ببعض المعلومات الأساسية.\n\nما هو اسمك الكامل؟",
	types.StepName:       "ما هو اسمك الكامل؟",
	types.StepEmail:      "ما هو بريدك الإلكتروني؟",
	types.StepPhone:      "ممتاز! ما هو رقم هاتفك؟",
	types.StepExperience: "شكراً! لنتحدث عن خبرتك العملية. أخبرني عن منصب شغلته، مثل \"مهندس برمجيات في شركة المدار، 2021 - الآن\".",
	types.StepSkills:     "ما هي مهاراتك الأساسية؟ اذكرها مفصولة بفواصل.",
	types.StepEducation:  "الآن تعليمك. أخبرني عن شهادة حصلت عليها، مثل \"بكالوريوس علوم الحاسوب، جامعة دمشق، 2015 - 2019\".",
	types.StepSummary:    "اقتربنا من النهاية! اكتب ملخصاً مهنياً قصيراً عن نفسك.",
	types.StepDone:       "اكتملت مسودة سيرتك الذاتية. يمكنك مراجعتها أو بدء جلسة جديدة في أي وقت.",
}

// Follow-up asked after an entry lands on a multi-entry step.
var englishSticky = map[types.BuilderStep]string{
	types.StepExperience: "Added. Tell me about another role, or say \"next\" to move on.",
	types.StepSkills:     "Added. List more skills, or say \"next\" to move on.",
	types.StepEducation:  "Added. Tell me about another degree, or say \"next\" to move on.",
}

var arabicSticky = map[types.BuilderStep]string{
	types.StepExperience: "تمت الإضافة. أخبرني عن منصب آخر، أو قل \"التالي\" للمتابعة.",
	types.StepSkills:     "تمت الإضافة. اذكر مهارات أخرى، أو قل \"التالي\" للمتابعة.",
	types.StepEducation:  "تمت الإضافة. أخبرني عن شهادة أخرى، أو قل \"التالي\" للمتابعة.",
}

var englishSuggestions = map[types.BuilderStep][]string{
	types.StepName:       {"Provide your full name", "Skip to next section"},
	types.StepEmail:      {"Provide your email address", "Skip to next section"},
	types.StepPhone:      {"Provide your phone number", "Skip to next section"},
	types.StepExperience: {"Describe a role you held", "Say \"next\" when finished"},
	types.StepSkills:     {"List your skills separated by commas", "Say \"next\" when finished"},
	types.StepEducation:  {"Describe a degree you earned", "Say \"next\" when finished"},
	types.StepSummary:    {"Write a short professional summary", "Skip to finish"},
	types.StepDone:       {"Review your CV", "Start a new session"},
}

var arabicSuggestions = map[types.BuilderStep][]string{
	types.StepName:       {"ما هو اسمك الكامل؟", "تخطي هذا القسم"},
	types.StepEmail:      {"ما هو بريدك الإلكتروني؟", "تخطي هذا القسم"},
	types.StepPhone:      {"ما هو رقم هاتفك؟", "تخطي هذا القسم"},
	types.StepExperience: {"ما هو آخر منصب شغلته؟", "قل \"التالي\" عند الانتهاء"},
	types.StepSkills:     {"اذكر مهاراتك مفصولة بفواصل", "قل \"التالي\" عند الانتهاء"},
	types.StepEducation:  {"أخبرني عن شهادتك", "قل \"التالي\" عند الانتهاء"},
	types.StepSummary:    {"اكتب ملخصاً مهنياً قصيراً", "تخطي للإنهاء"},
	types.StepDone:       {"راجع سيرتك الذاتية", "ابدأ جلسة جديدة"},
}

func prompt(language string, step types.BuilderStep) string {
	if language == LanguageArabic {
		if msg, ok := arabicPrompts[step]; ok {
			return msg
		}
	}
	return englishPrompts[step]
}

func stickyPrompt(language string, step types.BuilderStep) string {
	if language == LanguageArabic {
		if msg, ok := arabicSticky[step]; ok {
			return msg
		}
	}
	return englishSticky[step]
}

func suggestions(language string, step types.BuilderStep) []string {
	if language == LanguageArabic {
		if s, ok := arabicSuggestions[step]; ok {
			return s
		}
	}
	return englishSuggestions[step]
}
