package guidance

import (
	"errors"
	"fmt"
	"strings"
)

// First aid kinds
const (
	FirstAidCuts        = "Cuts"
	FirstAidBurns       = "Burns"
	FirstAidChoking     = "Choking"
	FirstAidHeartAttack = "Heart Attack"
)

// FirstAidKinds lists the available first aid procedures
var FirstAidKinds = []string{FirstAidCuts, FirstAidBurns, FirstAidChoking, FirstAidHeartAttack}

// ErrUnknownFirstAid is returned for an unknown first aid kind
var ErrUnknownFirstAid = errors.New("unknown first aid kind")

// Procedure is a numbered first aid procedure
type Procedure struct {
	Kind  string   `json:"kind"`
	Title string   `json:"title"`
	Steps []string `json:"steps"`
}

var procedures = map[string][]string{
	FirstAidCuts: {
		"Clean hands",
		"Stop bleeding",
		"Clean wound",
		"Apply bandage",
	},
	FirstAidBurns: {
		"Cool with water (10-20 min)",
		"Remove jewelry",
		"Cover with clean cloth",
		"Seek medical help",
	},
	FirstAidChoking: {
		"Encourage coughing",
		"Give 5 back blows",
		"Give 5 abdominal thrusts",
		"Call 108 if needed",
	},
	FirstAidHeartAttack: {
		"Call 108 immediately",
		"Give aspirin if available",
		"Keep person calm and seated",
		"Monitor breathing and pulse",
	},
}

// FirstAid returns the procedure for kind. Matching ignores case and
// accepts "-" or "_" in place of spaces.
func FirstAid(kind string) (*Procedure, error) {
	normalized := strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(kind))
	for _, k := range FirstAidKinds {
		if strings.EqualFold(k, normalized) {
			return &Procedure{
				Kind:  k,
				Title: "For " + k,
				Steps: procedures[k],
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFirstAid, kind)
}

// Contact is an emergency phone number
type Contact struct {
	Service string `json:"service"`
	Number  string `json:"number"`
}

// EmergencyContacts returns the emergency numbers
func EmergencyContacts() []Contact {
	return []Contact{
		{Service: "Police", Number: "100"},
		{Service: "Fire Department", Number: "101"},
		{Service: "Ambulance", Number: "108"},
		{Service: "Disaster Management", Number: "112"},
		{Service: "National Disaster Response Center", Number: "112"},
		{Service: "Emergency Medical Services", Number: "112"},
		{Service: "National Emergency Operations Center", Number: "112"},
		{Service: "National Emergency Response System", Number: "112"},
	}
}

// SafetyTips returns general preparedness tips
func SafetyTips() []string {
	return []string{
		"Stay calm and focused during emergencies.",
		"Be prepared for unexpected situations.",
		"Keep your home safe and secure.",
		"Listen to emergency alerts and follow instructions.",
		"Stay informed about local disaster management.",
		"Be aware of your surroundings.",
		"Stay connected with emergency services.",
		"Be prepared for potential hazards.",
		"Stay informed about the latest updates.",
	}
}

// Overview returns the introduction to disaster management
func Overview() []string {
	return []string{
		"Disaster management is the process of preparing for, responding to, and recovering from natural or man-made disasters.",
		"It aims to reduce loss of life, property damage, and economic disruption.",
		"Key steps include preparedness, mitigation, response, and recovery.",
		"Awareness and training help communities react calmly and effectively during emergencies.",
		"Schools and institutions play a vital role in educating students about disaster safety protocols.",
		"Technology such as early warning systems, mobile apps, and virtual drills can strengthen preparedness.",
		"A strong disaster management system builds a resilient society that can face challenges with confidence.",
	}
}
