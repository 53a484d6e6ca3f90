package story

// Fede is the built-in story.
var Fede = Script{
	ID:        "fede",
	Title:     "Fede, the Water Guardian",
	Author:    "Traditional",
	AgeGroup:  "3-7 years",
	Character: "A small curious boy named Fede with spiky brown hair, wearing a brown sun hat, a grey hoodie over a dark shirt, beige pants, and a backpack.",
	Episodes: []Episode{
		{
			Text:        "Fede was a curious boy who lived near a river. He loved to watch the water run and listen to its sound.",
			ImagePrompt: "{{character}} standing happily by a beautiful, sparkling clean blue river in a lush green valley, sunny day.",
		},
		{
			Text:        "One day, Fede noticed that the river was dirtier and had less water. That made him very sad and thoughtful.",
			ImagePrompt: "{{character}} looking sad and thoughtful, standing by a drying river that is muddy and has some trash, cloudy sky.",
		},
		{
			Text:        "\"What is happening to the river?\" Fede asked, worried. He knew that water was very important for everyone.",
			ImagePrompt: "{{character}} with a worried expression, palms open, looking at the receding water of the river.",
		},
		{
			Text:        "Fede decided he wanted to help. He promised to take care of the water and to teach others to do the same.",
			ImagePrompt: "{{character}} with a determined face, hand over his heart, standing in front of the river, feeling brave.",
		},
		{
			Text:        "He turned off the taps that were left open and did not waste a single drop. Every small action mattered.",
			ImagePrompt: "{{character}} closing a dripping water faucet carefully with both hands, inside a bright colorful kitchen.",
		},
		{
			Text:        "He explained to his friends that without water there is no life. Plants, animals and people all need it.",
			ImagePrompt: "{{character}} talking to 3 other small children, pointing towards a group of plants and a small bird, teaching them.",
		},
		{
			Text:        "Little by little, more children began to help. The river started to look cleaner and happier.",
			ImagePrompt: "A group of children including {{character}} picking up trash near a river that is becoming clear and blue again.",
		},
		{
			Text:        "Nature seemed to smile. The plants grew and the animals came back.",
			ImagePrompt: "A beautiful flourishing landscape with colorful flowers, a deer drinking from the clean river, {{character}} smiling in the background.",
		},
		{
			Text:        "Fede understood that caring for water is caring for the planet. We can all be guardians of the water.",
			ImagePrompt: "{{character}} hugging a small globe or standing in front of a giant blue Earth map, smiling broadly.",
		},
		{
			Text:        "From that day on, Fede was known as the water guardian, a friend of nature and of planet Earth.",
			ImagePrompt: "{{character}} standing heroically like a guardian, the clean river behind him, looking like a little environmental hero.",
		},
	},
}
