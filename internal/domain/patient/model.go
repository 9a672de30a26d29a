package patient

import (
	"time"

	"github.com/wellcare/billing/internal/types"
)

// Patient is the minimal registry record the billing core needs: enough
// to verify a patient exists and to tie invoices back to a portal user.
// The full clinical record lives in the patient administration system.
type Patient struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Phone       string     `db:"phone" json:"phone,omitempty"`

	types.BaseModel
}

// FullName returns the patient's display name
func (p *Patient) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
