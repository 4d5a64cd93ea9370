package heuristic

import "github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"

// digestiveKeywords mark a digestive complaint for rule matching.
var digestiveKeywords = []string{"diarrhea", "diarrhoea", "nausea", "vomiting", "stomach", "abdominal"}

var (
	emptyInput = tri(
		"General Health Assessment Needed", 75,
		"Wellness Check Required", 65,
		"Preventive Care Consultation", 55,
	)
	fallthroughDefault = tri(
		"General Viral Illness", 70,
		"Stress-Related Symptoms", 60,
		"Minor Acute Illness", 50,
	)
)

// rules are tested in order; order is the priority between groups.
var rules = [...]Rule{
	{
		Name:     "digestive",
		Keywords: digestiveKeywords,
		Resolve: func(in Input) Triple {
			if in.Contains("fever") || in.Severity.Elevated() {
				return tri("Gastroenteritis", 88, "Food Poisoning", 78, "Viral Gastritis", 68)
			}
			return tri("Irritable Bowel Syndrome", 75, "Food Intolerance", 65, "Functional Dyspepsia", 55)
		},
	},
	{
		Name:     "respiratory",
		Keywords: []string{"cough", "throat", "breathing", "chest", "runny", "congestion"},
		Resolve: func(in Input) Triple {
			if in.Contains("fever") {
				return tri("Upper Respiratory Infection", 85, "Viral Pharyngitis", 75, "Common Cold", 65)
			}
			return tri("Common Cold", 80, "Allergic Rhinitis", 70, "Throat Irritation", 60)
		},
	},
	{
		Name:     "febrile",
		Keywords: []string{"fever", "chills", "sweating"},
		Resolve: func(in Input) Triple {
			if in.Severity == schema.SeveritySevere {
				return tri("Viral Infection", 85, "Influenza", 75, "Bacterial Infection", 65)
			}
			return tri("Viral Infection", 80, "Common Cold", 70, "Mild Viral Infection", 60)
		},
	},
	{
		Name:     "pain",
		Keywords: []string{"headache", "pain", "ache", "joint", "muscle"},
		Resolve: func(in Input) Triple {
			if in.Contains("headache") {
				return tri("Tension Headache", 80, "Migraine", 70, "Stress Headache", 60)
			}
			return tri("Muscle Strain", 75, "Arthralgia", 65, "Inflammatory Pain", 55)
		},
	},
	{
		Name:     "skin",
		Keywords: []string{"rash", "itching", "skin", "redness"},
		Resolve: func(Input) Triple {
			return tri("Contact Dermatitis", 80, "Allergic Reaction", 70, "Eczema", 60)
		},
	},
	{
		Name:     "neurological",
		Keywords: []string{"dizziness", "blurred", "vision", "balance"},
		Resolve: func(Input) Triple {
			return tri("Vertigo", 75, "Inner Ear Disorder", 65, "Vestibular Dysfunction", 55)
		},
	},
	{
		Name:     "fatigue",
		Keywords: []string{"fatigue", "tired", "weakness", "malaise"},
		Resolve: func(Input) Triple {
			return tri("Viral Infection", 75, "Chronic Fatigue", 65, "Sleep Disorder", 55)
		},
	},
}
