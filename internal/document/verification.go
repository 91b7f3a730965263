package document

import (
	"encoding/base32"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
)

const verificationLen = 12

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func verificationInput(docNo string, date time.Time, total decimal.Decimal) string {
	return fmt.Sprintf("%s|%s|%s", docNo, date.Format("2006-01-02"), total.StringFixed(2))
}

// VerificationCode derives a short code from the document number, the
// document date and the total.  It depends on nothing else, so anyone
// holding the printed values can recompute and compare it.
func VerificationCode(docNo string, date time.Time, total decimal.Decimal) string {
	sum := blake2b.Sum256([]byte(verificationInput(docNo, date, total)))
	return codeEncoding.EncodeToString(sum[:])[:verificationLen]
}

// VerificationPayload is the text encoded into the scannable mark.
func VerificationPayload(docNo string, date time.Time, total decimal.Decimal) string {
	return verificationInput(docNo, date, total) + "|" + VerificationCode(docNo, date, total)
}
