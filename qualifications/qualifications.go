// Package qualifications scores a lead's answers to decide whether the
// standard accounting plan fits their business.
package qualifications

import "time"

// Answer values the qualification rule keys on. The form sends these
// verbatim, in Portuguese.
const (
	SegmentService    = "Serviço"
	AreaOther         = "Outros"
	RevenueAboveLimit = "Acima de 1 milhão/mês"
)

type Qualification struct {
	ID              string    `json:"id"`
	LeadID          string    `json:"lead_id"`
	CompanySegment  string    `json:"company_segment"`
	AreaOfOperation string    `json:"area_of_operation"`
	MonthlyRevenue  string    `json:"monthly_revenue"`
	IsQualified     bool      `json:"is_qualified"`
	CreatedAt       time.Time `json:"created_at"`
}

// Evaluate applies the qualification rule: only service businesses are
// served, "other" operating areas need manual review, and revenue above
// the ceiling goes to the enterprise desk.
func Evaluate(segment, area, revenue string) bool {
	return segment == SegmentService && area != AreaOther && revenue != RevenueAboveLimit
}
