package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
)

// ErrUnknownVariant is returned for consent variants without a text.
var ErrUnknownVariant = errors.New("unknown consent variant")

// Texts take the patient name and the hospital name.
var consentTexts = map[model.ConsentVariant]string{
	model.ConsentTreatment: "I, %s, consent to the examination and medical treatment advised by the attending doctors of %s. " +
		"The nature of the treatment and its risks have been explained to me.",
	model.ConsentAdmission: "I, %s, consent to admission at %s and agree to abide by the rules of the hospital " +
		"during my stay. I understand that the deposit is adjusted against the final bill.",
	model.ConsentLab: "I, %s, consent to the collection of samples and the laboratory investigations requested by the doctors of %s.",
	model.ConsentOPD: "I, %s, consent to consultation and examination in the outpatient department of %s.",
}

// ConsentText returns the acknowledgement text of a variant for a patient.
func ConsentText(v model.ConsentVariant, patientName, hospital string) (string, error) {
	tpl, ok := consentTexts[v]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, v)
	}
	name := strings.TrimSpace(patientName)
	if name == "" {
		name = "__________"
	}
	return fmt.Sprintf(tpl, name, hospital), nil
}
