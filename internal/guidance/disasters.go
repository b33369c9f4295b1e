package guidance

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Disaster types accepted by DisasterInfo
const (
	DisasterVolcano      = "volcano"
	DisasterFloods       = "floods"
	DisasterVolcanoHindi = "ज्वालामुखी"
	DisasterFloodsHindi  = "बाढ़"
	DisasterNone         = "None"
)

// DisasterTypes lists the accepted disaster types
var DisasterTypes = []string{
	DisasterVolcano, DisasterFloods, DisasterVolcanoHindi, DisasterFloodsHindi, DisasterNone,
}

// Errors returned by DisasterInfo
var (
	ErrUnknownLanguage = errors.New("unknown language")
	ErrUnknownDisaster = errors.New("unknown disaster type")
)

// Section is a titled list of measures
type Section struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// Article is the safety information for one disaster type. When the
// language and disaster type do not match, only Hint is set.
type Article struct {
	Language     string    `json:"language"`
	DisasterType string    `json:"disaster_type"`
	Heading      string    `json:"heading"`
	Title        string    `json:"title,omitempty"`
	Sections     []Section `json:"sections,omitempty"`
	Hint         string    `json:"hint,omitempty"`
}

type articleKey struct {
	language string
	disaster string
}

var articles = map[articleKey]struct {
	title    string
	sections []Section
}{
	{LanguageEnglish, DisasterVolcano}: {
		title: "Measures for volcanic eruptions",
		sections: []Section{
			{Title: "Before a Volcanic Eruption", Items: []string{
				"Stay informed: Listen to government warnings, geological updates, and emergency alerts.",
				"Prepare an emergency kit: Include water, food, torch, batteries, mask, first-aid kit, and important documents.",
				"Know evacuation routes: Identify safe shelters and practice evacuation drills.",
				"Protect your house: Seal windows/doors to prevent ash entry, and keep roofs strong (ash can be heavy).",
			}},
			{Title: "During a Volcanic Eruption", Items: []string{
				"Follow official instructions immediately. Evacuate if told to.",
				"Stay indoors if evacuation is not possible; close all openings.",
				"Use masks or cloth to cover nose and mouth to avoid inhaling ash.",
				"Protect eyes with goggles; avoid wearing contact lenses.",
				"Stay away from rivers and streams (they may carry lava or mudflows).",
				"Do not drive unless necessary. Ash reduces visibility and damages vehicles.",
			}},
			{Title: "After a Volcanic Eruption", Items: []string{
				"Wait for official \"all clear\" before returning home.",
				"Avoid ash-covered areas as much as possible.",
				"Clean roofs carefully. Ash is heavy and can collapse structures.",
				"Wear protective gear while cleaning ash.",
				"Boil or filter water before drinking (ash can contaminate supplies).",
				"Help neighbors, especially children, elderly, and people with disabilities.",
			}},
		},
	},
	{LanguageEnglish, DisasterFloods}: {
		title: "Measures for floods",
		sections: []Section{
			{Title: "Before a Flood", Items: []string{
				"Stay informed: Monitor weather reports and flood warnings.",
				"Prepare emergency kit: Water, food, flashlight, radio, first-aid supplies.",
				"Know evacuation routes: Identify higher ground and safe shelters.",
				"Secure your home: Move valuables to higher floors, turn off utilities if advised.",
			}},
			{Title: "During a Flood", Items: []string{
				"Evacuate immediately if told by authorities.",
				"Never walk or drive through flood water - \"Turn Around, Don't Drown\".",
				"Stay away from downed power lines.",
				"Seek higher ground immediately.",
			}},
			{Title: "After a Flood", Items: []string{
				"Wait for authorities to declare area safe.",
				"Avoid flood water - it may be contaminated.",
				"Document damage with photos for insurance.",
				"Clean and disinfect everything that got wet.",
			}},
		},
	},
	{LanguageHindi, DisasterVolcanoHindi}: {
		title: "ज्वालामुखी विस्फोट से बचाव के उपाय",
		sections: []Section{
			{Title: "विस्फोट से पहले (तैयारी)", Items: []string{
				"सुरक्षित निकासी मार्ग (evacuation plan) और शरण स्थल पहले से तय कर लो।",
				"रेडियो/टीवी से सरकार द्वारा दी गई चेतावनियों पर ध्यान दो।",
				"आपातकालीन किट तैयार रखो – टॉर्च, मास्क, पानी, भोजन, प्राथमिक उपचार।",
				"धूल से बचने के लिए मास्क और चश्मा साथ रखो।",
			}},
			{Title: "विस्फोट के दौरान", Items: []string{
				"ज्वालामुखी के पास बिल्कुल मत जाओ, तुरंत सुरक्षित स्थान पर चले जाओ।",
				"सरकार या प्रशासन के निकासी आदेश का पालन करो।",
				"खिड़कियाँ और दरवाज़े बंद रखो ताकि राख (ash) अंदर न आ सके।",
				"मास्क या गीले कपड़े से मुँह और नाक को ढककर सांस लो।",
				"गाड़ी चलाने से बचो, राख से सड़क फिसलन भरी और इंजन खराब हो सकता है।",
			}},
			{Title: "विस्फोट के बाद", Items: []string{
				"प्रशासन द्वारा \"सुरक्षित\" घोषित किए जाने के बाद ही घर वापस जाओ।",
				"राख को सावधानी से साफ करो (गीले कपड़े/पानी से), झाड़ू से सूखी सफाई मत करो।",
				"पीने का पानी छानकर या उबालकर इस्तेमाल करो, क्योंकि पानी दूषित हो सकता है।",
				"घायल और प्रभावित लोगों की मदद करो।",
			}},
		},
	},
	{LanguageHindi, DisasterFloodsHindi}: {
		title: "बाढ़ से बचाव के उपाय",
		sections: []Section{
			{Title: "बाढ़ से पहले (तैयारी)", Items: []string{
				"मौसम की जानकारी और बाढ़ की चेतावनी पर ध्यान दो।",
				"आपातकालीन किट तैयार रखो – पानी, खाना, टॉर्च, रेडियो।",
				"घर के महत्वपूर्ण सामान ऊंची जगह पर रखो।",
			}},
			{Title: "बाढ़ के दौरान", Items: []string{
				"प्रशासन के निकासी आदेश का पालन करो।",
				"बाढ़ के पानी में कभी मत चलो या गाड़ी मत चलाओ।",
				"टूटी बिजली की तारों से दूर रहो।",
			}},
			{Title: "बाढ़ के बाद", Items: []string{
				"प्रशासन द्वारा सुरक्षित घोषित करने के बाद ही घर वापस जाओ।",
				"नुकसान की तस्वीरें लो बीमा के लिए।",
				"सब कुछ साफ और कीटाणुरहित करो।",
			}},
		},
	},
}

// hints for a disaster type picked in the other language
var crossLanguageHints = map[articleKey]string{
	{LanguageHindi, DisasterVolcano}:        "कृपया हिंदी में 'ज्वालामुखी' चुनें",
	{LanguageHindi, DisasterFloods}:         "कृपया हिंदी में 'बाढ़' चुनें",
	{LanguageEnglish, DisasterVolcanoHindi}: "Please select 'volcano' for English",
	{LanguageEnglish, DisasterFloodsHindi}:  "Please select 'floods' for English",
}

// DisasterInfo returns the safety article for a disaster type in the given
// language
func DisasterInfo(language, disasterType string) (*Article, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language != LanguageEnglish && language != LanguageHindi {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, language)
	}
	if !contains(DisasterTypes, disasterType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDisaster, disasterType)
	}

	article := &Article{
		Language:     language,
		DisasterType: disasterType,
		Heading:      heading(language, disasterType),
	}

	key := articleKey{language, disasterType}
	if a, ok := articles[key]; ok {
		article.Title = a.title
		article.Sections = a.sections
		return article, nil
	}
	if hint, ok := crossLanguageHints[key]; ok {
		article.Hint = hint
		return article, nil
	}

	// DisasterNone
	if language == LanguageEnglish {
		article.Hint = "Select a disaster type to see safety measures"
	} else {
		article.Hint = "आपदा की जानकारी देखने के लिए कोई आपदा चुनें"
	}
	return article, nil
}

func heading(language, disasterType string) string {
	if language == LanguageEnglish {
		r, size := utf8.DecodeRuneInString(disasterType)
		return "Safety Measures for " + string(unicode.ToTitle(r)) + disasterType[size:]
	}
	return disasterType + " से बचाव के उपाय"
}
