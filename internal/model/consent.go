package model

// ConsentVariant selects which consent text the patient acknowledges.
type ConsentVariant string

const (
	ConsentTreatment ConsentVariant = "treatment"
	ConsentAdmission ConsentVariant = "admission"
	ConsentLab       ConsentVariant = "lab"
	ConsentOPD       ConsentVariant = "opd"
)

// Valid reports whether v is a known consent variant.
func (v ConsentVariant) Valid() bool {
	switch v {
	case ConsentTreatment, ConsentAdmission, ConsentLab, ConsentOPD:
		return true
	}
	return false
}

// ConsentDecision is the acknowledgement captured at the desk.  It is never
// persisted and carries no identity beyond the interaction producing it.
type ConsentDecision struct {
	Variant      ConsentVariant `json:"variant"`
	PatientName  string         `json:"patient_name"`
	Acknowledged bool           `json:"acknowledged"`
}
