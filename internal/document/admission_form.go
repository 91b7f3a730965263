package document

import (
	"strconv"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
)

// dateTimeLayout is the locale date-time printed on the admission form.
const dateTimeLayout = "02/01/2006, 15:04:05"

// modeOfAdmission maps admission types to the labels of the paper form.
// "Refered" is the literal the existing paperwork expects.
var modeOfAdmission = map[model.AdmissionType]string{
	model.AdmissionFromOPD:   "From OPD",
	model.AdmissionEmergency: "Emergency",
	model.AdmissionDirect:    "Refered",
}

// ModeOfAdmission returns the printed label of t, or "" for unknown types.
func ModeOfAdmission(t model.AdmissionType) string {
	return modeOfAdmission[t]
}

// AdmissionReason is the staff notes, or the patient's registered problem
// when no notes were taken.
func AdmissionReason(adm *model.Admission) string {
	if adm.Notes != "" {
		return adm.Notes
	}
	return adm.Snapshot.Patient.Problem
}

func (r *Renderer) fillAdmissionForm(doc *RenderedDocument, adm *model.Admission) {
	snap := adm.Snapshot
	doc.Title = "Admission Form"
	doc.Total = adm.Deposit

	department := snap.Doctor.Department
	if department == "" {
		department = snap.Room.Department
	}
	admittedAt := ""
	if !adm.AdmittedAt.IsZero() {
		admittedAt = adm.AdmittedAt.In(r.loc).Format(dateTimeLayout)
	}
	age := ""
	if snap.Patient.Age > 0 {
		age = strconv.Itoa(snap.Patient.Age)
	}

	f := doc.Fields
	f["patient_age"] = age
	f["patient_gender"] = snap.Patient.Gender
	f["patient_address"] = snap.Patient.Address
	f["patient_phone"] = snap.Patient.Contact
	f["emergency_contact"] = snap.Patient.EmergencyContact
	f["department"] = department
	f["consultant"] = snap.Doctor.Name
	f["room_number"] = snap.Room.RoomNumber
	f["room_type"] = string(snap.Room.Type)
	f["bed_number"] = strconv.Itoa(adm.BedNumber)
	f["admission_datetime"] = admittedAt
	f["mode_of_admission"] = ModeOfAdmission(adm.Type)
	f["admission_reason"] = AdmissionReason(adm)
	f["deposit"] = adm.Deposit.StringFixed(2)
}
