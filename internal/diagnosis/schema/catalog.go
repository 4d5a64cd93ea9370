package schema

// DisplayCategory groups symptom identifiers for the symptom picker.
type DisplayCategory struct {
	Name     string   `json:"name"`
	Symptoms []string `json:"symptoms"`
}

// DisplayCategories is the fixed picker layout shown to clients. It is
// presentation data and plays no part in ranking.
var DisplayCategories = []DisplayCategory{
	{Name: "General", Symptoms: []string{"fever", "fatigue", "chills", "sweating"}},
	{Name: "Digestive", Symptoms: []string{"nausea", "vomiting", "diarrhea", "constipation", "stomach_pain"}},
	{Name: "Respiratory", Symptoms: []string{"cough", "shortness_of_breath", "chest_pain", "runny_nose"}},
	{Name: "Head/Neck", Symptoms: []string{"headache", "sore_throat", "dizziness", "neck_pain"}},
	{Name: "Skin", Symptoms: []string{"itching", "skin_rash", "redness_of_eyes"}},
	{Name: "Musculoskeletal", Symptoms: []string{"joint_pain", "muscle_pain", "back_pain"}},
	{Name: "Neurological", Symptoms: []string{"blurred_vision", "spinning_movements", "loss_of_balance"}},
	{Name: "Urinary", Symptoms: []string{"burning_micturition", "frequent_urination"}},
	{Name: "Mental", Symptoms: []string{"anxiety", "depression", "mood_swings"}},
}
