package model

// Patient mirrors a row of the patient directory.  Registration is owned by
// another part of the front desk; this service only reads patients.
type Patient struct {
	ID               uint64 `json:"id"`
	Name             string `json:"name"`
	Age              int    `json:"age"`
	Gender           string `json:"gender"`
	Contact          string `json:"contact"`
	EmergencyContact string `json:"emergency_contact"`
	Address          string `json:"address"`
	Problem          string `json:"problem"`
}

// Doctor mirrors a row of the doctor directory.
type Doctor struct {
	ID             uint64 `json:"id"`
	Name           string `json:"name"`
	Department     string `json:"department"`
	Specialization string `json:"specialization"`
	IsActive       bool   `json:"is_active"`
}
