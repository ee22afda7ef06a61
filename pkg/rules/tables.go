package rules

import "github.com/sparrowhealth/clinic-platform/pkg/forms"

// fullProtocolRules is the battery applied to "Complete Protocol" submissions:
// the patient-form predicates followed by the echo-form predicates, in the
// order the violations are reported.
func fullProtocolRules() []Rule {
	return append(patientRules(), echoRules()...)
}

func patientRules() []Rule {
	return []Rule{
		{
			Section:  forms.SectionPatient,
			Field:    "heart_failure_choice",
			Test:     Equals,
			Expected: []string{"Yes"},
			Message:  "Heart Failure: <b>%s</b>",
		},
		{
			Section:  forms.SectionPatient,
			Field:    "atrial_fibrillation_definition",
			Test:     Equals,
			Expected: []string{"Present"},
			Message:  "At the moment of heart sound recording Atrial fibrillation is: <b>%s</b>",
		},
		{
			Section:  forms.SectionPatient,
			Field:    "af_definition",
			Test:     Equals,
			Expected: []string{"Present"},
			Message:  "At the moment of heart sound recording, AF is: <b>%s</b>",
		},
		{
			Section:  forms.SectionPatient,
			Field:    "pulmonary_hypertension",
			Test:     Equals,
			Expected: []string{"Yes"},
			Message:  "Pulmonary hypertension: <b>%s</b>",
		},
		{
			Section:  forms.SectionPatient,
			Field:    "pulmonary_embolism",
			Test:     OneOf,
			Expected: []string{"acute", "chronic", "acute in the past"},
			Message:  "Pulmonary Embolism: <b>%s</b>",
		},
		{
			Section:  forms.SectionPatient,
			Field:    "cardiomyopathy_type",
			Test:     OneOf,
			Expected: []string{"Hypertrophic Obstructive", "Hypertrophic Non-Obstructive"},
			Message:  "Cardiomyopathy Type: <b>%s</b>",
		},
	}
}

func echoRules() []Rule {
	return []Rule{
		{
			Section:  forms.SectionEcho,
			Field:    "aortic_dissection",
			Test:     OneOf,
			Expected: []string{"DeBakey I", "DeBakey II", "DeBakey III"},
			Message:  "Aortic dissection: <b>%s</b>",
		},
		{
			Section:   forms.SectionEcho,
			Field:     "ef",
			Test:      NumericAtMost,
			Threshold: 40,
			Message:   "EF (apical access, 4-chamber position, Simpson algorithm): <b>%s</b>",
		},
		{
			Section: forms.SectionEcho,
			Field:   "mitral_regurgitation_stage",
			Test:    OneOf,
			Expected: []string{
				"B Progressive",
				"C1 Asymptomatic severe (LVEF > 60% and LVESD < 40mm)",
				"C2 Asymptomatic severe (LVEF < 60% and LVESD > 40mm)",
				"D Symptomatic severe",
				"Undefined",
				"Acute",
			},
			Message: "Mitral regurgitation stage: <b>%s</b>",
		},
		{
			Section: forms.SectionEcho,
			Field:   "mitral_stenosis_stage",
			Test:    OneOf,
			Expected: []string{
				"B Progressive MS",
				"C Asymptomatic severe MS",
				"D Symptomatic severe MS",
			},
			Message: "Mitral stenosis stage: <b>%s</b>",
		},
		{
			Section: forms.SectionEcho,
			Field:   "aortic_regurgitation_stage",
			Test:    OneOf,
			Expected: []string{
				"B Progressive Moderate AR",
				"C1 Asymptomatic severe AR, LVEF ≥ 50%, LVESD ≤ 50mm",
				"C2 Asymptomatic severe AR, LVEF < 50%, LVESD > 50mm",
				"D Symptomatic severe AR",
			},
			Message: "Aortic regurgitation stage: <b>%s</b>",
		},
		{
			Section: forms.SectionEcho,
			Field:   "aortic_stenosis_stage",
			Test:    OneOf,
			Expected: []string{
				"B - Progressive moderate",
				"C1 - Asymptomatic severe with normal EF",
				"C2 - Asymptomatic severe with low EF",
				"D1 - Symptomatic severe High gradient",
				"D2 - Symptomatic severe LG reduced EF",
				"D3 - Symptomatic severe LG normal EF",
			},
			Message: "Aortic stenosis stage: <b>%s</b>",
		},
		{
			Section: forms.SectionEcho,
			Field:   "tricuspid_regurgitation_stage",
			Test:    OneOf,
			Expected: []string{
				"B - Progressive TR Moderate",
				"C - Asymptomatic severe TR",
				"D - Symptomatic severe TR",
				"Undefined",
			},
			Message: "Tricuspid regurgitation stage: <b>%s</b>",
		},
		{
			Section:  forms.SectionEcho,
			Field:    "pulmonary_regurgitation_stage",
			Test:     OneOf,
			Expected: []string{"Moderate", "Severe"},
			Message:  "Pulmonary regurgitation stage: <b>%s</b>",
		},
		{
			Section:  forms.SectionEcho,
			Field:    "pulmonary_stenosis",
			Test:     Equals,
			Expected: []string{"Present"},
			Message:  "Pulmonary stenosis: <b>%s</b>",
		},
		{
			Section:  forms.SectionEcho,
			Field:    "congenital_heart_disease",
			Test:     Equals,
			Expected: []string{"Yes"},
			Message:  "Congenital heart disease: <b>%s</b>",
		},
	}
}

// sapRules is the abbreviated-protocol battery, applied to the patient and
// EKG sections of the bundle.
func sapRules() []Rule {
	return []Rule{
		{
			Section:  forms.SectionPatient,
			Field:    "atrial_fibrillation",
			Test:     Equals,
			Expected: []string{"Yes"},
			Message:  "Atrial fibrillation: <b>%s</b>",
		},
		{
			Section:  forms.SectionPatient,
			Field:    "atrial_fibrillation_definition",
			Test:     Equals,
			Expected: []string{"Present"},
			Message:  "At the moment of heart sound recording, AF is: <b>%s</b>",
		},
		{
			Section:  forms.SectionPatient,
			Field:    "atrial_flutter",
			Test:     Equals,
			Expected: []string{"Yes"},
			Message:  "Atrial flutter: <b>%s</b>",
		},
		{
			Section:  forms.SectionPatient,
			Field:    "af_definition",
			Test:     Equals,
			Expected: []string{"Present"},
			Message:  "At the time of heart sound recording, Atrial Flutter is: <b>%s</b>",
		},
		{
			Section:  forms.SectionEKG,
			Field:    "rhythm",
			Test:     IntersectsNonEmpty,
			Expected: []string{"SV extrasystole", "V extrasystole", "undetermined extrasystole"},
			Message:  "Rhythm: <b>%s</b>",
		},
	}
}
