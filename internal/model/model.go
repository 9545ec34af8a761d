package model

import "time"

// Designation is the closed set of registrant roles. The role decides which
// affiliation fields a submission must carry: Chair Person, Principal and
// Vice-Chancellor registrations belong to exactly one college, Council
// Member registrations belong to none and carry a committee label instead.
type Designation string

const (
	DesignationChairPerson    Designation = "Chair Person"
	DesignationPrincipal      Designation = "Principal"
	DesignationViceChancellor Designation = "Vice-Chancellor"
	DesignationCouncilMember  Designation = "Council Member"
)

// ParseDesignation maps a form value onto the closed set. The bool is false
// for anything outside it, including the empty string.
func ParseDesignation(s string) (Designation, bool) {
	switch Designation(s) {
	case DesignationChairPerson, DesignationPrincipal,
		DesignationViceChancellor, DesignationCouncilMember:
		return Designation(s), true
	}
	return "", false
}

// RequiresCollegeID reports whether the registrant must reference an
// existing college by id.
func (d Designation) RequiresCollegeID() bool {
	return d == DesignationChairPerson || d == DesignationPrincipal
}

// ResolvesCollegeByName reports whether the college is resolved (and lazily
// created) from a free-text name instead of an id.
func (d Designation) ResolvesCollegeByName() bool {
	return d == DesignationViceChancellor
}

// DefaultCommitteeLabel is stored when a Council Member leaves the
// committee field empty.
const DefaultCommitteeLabel = "General Council"

const (
	ReasonInternship    = "To know about International Internship"
	ReasonTextbook      = "To know about Textbook"
	ReasonResearchPaper = "To present research paper"
)

// ValidReason reports whether s is one of the visit-reason categories the
// form offers.
func ValidReason(s string) bool {
	switch s {
	case ReasonInternship, ReasonTextbook, ReasonResearchPaper:
		return true
	}
	return false
}

type College struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Registration struct {
	ID              int         `db:"id" json:"id"`
	Name            string      `db:"name" json:"name"`
	Designation     Designation `db:"designation" json:"designation"`
	CollegeID       *int        `db:"college_id" json:"college_id,omitempty"`
	CommitteeMember *string     `db:"committee_member" json:"committee_member,omitempty"`
	Phone           string      `db:"phone" json:"phone"`
	Email           string      `db:"email" json:"email"`
	Photo           []byte      `db:"photo" json:"-"`
	Reason          string      `db:"reason" json:"reason"`
	ResearchPaper   []byte      `db:"research_paper" json:"-"`
	EventID         int         `db:"event_id" json:"event_id"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`

	// CollegeName is joined from the colleges table on reads, empty for
	// Council Members.
	CollegeName string `db:"college_name" json:"college_name,omitempty"`

	// HasPaper is derived on listing reads where the paper blob itself is
	// not selected.
	HasPaper bool `db:"has_paper" json:"has_research_paper"`
}
